package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ramonehamilton/swu-binder/internal/ledger"
	"github.com/ramonehamilton/swu-binder/internal/storage/models"
	"github.com/ramonehamilton/swu-binder/internal/storage/repository"
)

// Service persists ledgers, their change history, and backup runs.
// It implements ledger.Store.
type Service struct {
	db      *DB
	ledgers repository.LedgerRepository
	backups repository.BackupRepository
}

var (
	_ ledger.Store      = (*Service)(nil)
	_ ledger.BatchStore = (*Service)(nil)
)

// NewService creates a new storage service.
func NewService(db *DB) *Service {
	return &Service{
		db:      db,
		ledgers: repository.NewLedgerRepository(db.Conn()),
		backups: repository.NewBackupRepository(db.Conn()),
	}
}

// LoadSet returns the stored payload for a set, or nil when none exists.
func (s *Service) LoadSet(ctx context.Context, setKey string) ([]byte, error) {
	set, err := s.ledgers.Get(ctx, setKey)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, nil
	}
	return set.Payload, nil
}

// SaveSet replaces a set's payload and records its change batch in one transaction.
func (s *Service) SaveSet(ctx context.Context, setKey string, payload []byte, batch ledger.ChangeBatch) error {
	return s.SaveSets(ctx, []ledger.SetWrite{{SetKey: setKey, Payload: payload, Batch: batch}})
}

// SaveSets replaces several sets' payloads and records their batches in one
// transaction. It implements ledger.BatchStore.
func (s *Service) SaveSets(ctx context.Context, writes []ledger.SetWrite) error {
	now := time.Now().UTC()

	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		repo := repository.NewLedgerRepository(tx)
		for _, w := range writes {
			if err := repo.Upsert(ctx, &models.LedgerSet{SetKey: w.SetKey, Payload: w.Payload, UpdatedAt: now}); err != nil {
				return err
			}
			if err := repo.RecordChanges(ctx, historyRows(w, now)); err != nil {
				return fmt.Errorf("failed to record history: %w", err)
			}
		}
		return nil
	})
}

func historyRows(w ledger.SetWrite, now time.Time) []*models.LedgerChange {
	changes := make([]*models.LedgerChange, 0, len(w.Batch.Changes))
	for _, ch := range w.Batch.Changes {
		changes = append(changes, &models.LedgerChange{
			SetKey:        w.SetKey,
			CardNumber:    ch.Number,
			QuantityDelta: ch.Delta,
			QuantityAfter: ch.Quantity,
			Source:        w.Batch.Source,
			BatchID:       w.Batch.ID,
			CreatedAt:     now,
		})
	}
	return changes
}

// SetKeys lists every set with a stored ledger.
func (s *Service) SetKeys(ctx context.Context) ([]string, error) {
	return s.ledgers.SetKeys(ctx)
}

// RecentChanges lists the newest history rows, optionally for one set.
func (s *Service) RecentChanges(ctx context.Context, setKey string, limit int) ([]*models.LedgerChange, error) {
	return s.ledgers.GetRecentChanges(ctx, setKey, limit)
}

// CardHistory lists the history of one card, newest first.
func (s *Service) CardHistory(ctx context.Context, setKey string, cardNumber int) ([]*models.LedgerChange, error) {
	return s.ledgers.GetCardHistory(ctx, setKey, cardNumber)
}

// RecordBackup stores the outcome of a backup run.
func (s *Service) RecordBackup(ctx context.Context, run *models.BackupRun) error {
	return s.backups.Record(ctx, run)
}

// RecentBackups lists the newest backup runs.
func (s *Service) RecentBackups(ctx context.Context, limit int) ([]*models.BackupRun, error) {
	return s.backups.GetRecent(ctx, limit)
}
