// Package repository implements SQL access for ledger persistence.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ramonehamilton/swu-binder/internal/storage/models"
)

// LedgerRepository handles database operations for per-set ledgers.
type LedgerRepository interface {
	// Get retrieves the stored ledger for a set, or nil when none exists.
	Get(ctx context.Context, setKey string) (*models.LedgerSet, error)

	// Upsert replaces the stored ledger for a set.
	Upsert(ctx context.Context, set *models.LedgerSet) error

	// SetKeys lists every stored set key in ascending order.
	SetKeys(ctx context.Context) ([]string, error)

	// RecordChanges appends history rows.
	RecordChanges(ctx context.Context, changes []*models.LedgerChange) error

	// GetRecentChanges retrieves the most recent history rows, newest first.
	// An empty setKey returns changes for every set.
	GetRecentChanges(ctx context.Context, setKey string, limit int) ([]*models.LedgerChange, error)

	// GetCardHistory retrieves the history of one card, newest first.
	GetCardHistory(ctx context.Context, setKey string, cardNumber int) ([]*models.LedgerChange, error)
}

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ledgerRepository struct {
	db Execer
}

// NewLedgerRepository creates a new ledger repository. db may be a
// transaction so that several calls commit together.
func NewLedgerRepository(db Execer) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Get(ctx context.Context, setKey string) (*models.LedgerSet, error) {
	query := `SELECT set_key, payload, updated_at FROM ledger_sets WHERE set_key = ?`

	var (
		set     models.LedgerSet
		payload string
	)
	err := r.db.QueryRowContext(ctx, query, setKey).Scan(&set.SetKey, &payload, &set.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	set.Payload = []byte(payload)
	return &set, nil
}

func (r *ledgerRepository) Upsert(ctx context.Context, set *models.LedgerSet) error {
	query := `
		INSERT INTO ledger_sets (set_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(set_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	updatedAt := set.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, query, set.SetKey, string(set.Payload), updatedAt); err != nil {
		return fmt.Errorf("failed to upsert ledger: %w", err)
	}
	return nil
}

func (r *ledgerRepository) SetKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT set_key FROM ledger_sets ORDER BY set_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger sets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan set key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *ledgerRepository) RecordChanges(ctx context.Context, changes []*models.LedgerChange) error {
	query := `
		INSERT INTO ledger_history (set_key, card_number, quantity_delta, quantity_after, source, batch_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	for _, c := range changes {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		res, err := r.db.ExecContext(ctx, query,
			c.SetKey, c.CardNumber, c.QuantityDelta, c.QuantityAfter, c.Source, c.BatchID, createdAt)
		if err != nil {
			return fmt.Errorf("failed to record change for %s #%d: %w", c.SetKey, c.CardNumber, err)
		}
		if id, err := res.LastInsertId(); err == nil {
			c.ID = id
		}
		c.CreatedAt = createdAt
	}
	return nil
}

func (r *ledgerRepository) GetRecentChanges(ctx context.Context, setKey string, limit int) ([]*models.LedgerChange, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, set_key, card_number, quantity_delta, quantity_after, source, batch_id, created_at
		FROM ledger_history
		WHERE (? = '' OR set_key = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	return r.queryChanges(ctx, query, setKey, setKey, limit)
}

func (r *ledgerRepository) GetCardHistory(ctx context.Context, setKey string, cardNumber int) ([]*models.LedgerChange, error) {
	query := `
		SELECT id, set_key, card_number, quantity_delta, quantity_after, source, batch_id, created_at
		FROM ledger_history
		WHERE set_key = ? AND card_number = ?
		ORDER BY created_at DESC, id DESC
	`
	return r.queryChanges(ctx, query, setKey, cardNumber)
}

func (r *ledgerRepository) queryChanges(ctx context.Context, query string, args ...any) ([]*models.LedgerChange, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.LedgerChange
	for rows.Next() {
		c := &models.LedgerChange{}
		if err := rows.Scan(&c.ID, &c.SetKey, &c.CardNumber, &c.QuantityDelta,
			&c.QuantityAfter, &c.Source, &c.BatchID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger change: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
