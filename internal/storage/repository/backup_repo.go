package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ramonehamilton/swu-binder/internal/storage/models"
)

// BackupRepository records snapshot backup runs.
type BackupRepository interface {
	// Record stores one run.
	Record(ctx context.Context, run *models.BackupRun) error

	// GetRecent retrieves the most recent runs, newest first.
	GetRecent(ctx context.Context, limit int) ([]*models.BackupRun, error)
}

type backupRepository struct {
	db Execer
}

// NewBackupRepository creates a new backup repository.
func NewBackupRepository(db Execer) BackupRepository {
	return &backupRepository{db: db}
}

func (r *backupRepository) Record(ctx context.Context, run *models.BackupRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO backup_runs (path, sets, cards, error, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.Path, run.Sets, run.Cards, run.Error, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record backup run: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		run.ID = id
	}
	return nil
}

func (r *backupRepository) GetRecent(ctx context.Context, limit int) ([]*models.BackupRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, path, sets, cards, error, created_at
		FROM backup_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backup runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.BackupRun
	for rows.Next() {
		run := &models.BackupRun{}
		var errText sql.NullString
		if err := rows.Scan(&run.ID, &run.Path, &run.Sets, &run.Cards, &errText, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backup run: %w", err)
		}
		if errText.Valid {
			run.Error = &errText.String
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
