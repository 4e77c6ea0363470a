package services

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

// SyncPublisher notifies the worker that local state moved past the
// last uploaded snapshot.
type SyncPublisher interface {
	PublishSnapshotSync(ctx context.Context, revision string) error
	Close() error
}

// LedgerService orchestrates ledger mutations: write locally, bump the
// sync revision, then publish the sync message. The publish is best
// effort; a dead broker never fails a mutation, the periodic worker
// sweep catches up from the revision markers instead.
type LedgerService struct {
	store     *ledger.Store
	publisher SyncPublisher
}

func NewLedgerService(store *ledger.Store, publisher SyncPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

// Store exposes the underlying ledger for read paths.
func (s *LedgerService) Store() *ledger.Store {
	return s.store
}

// AddTransaction validates and appends a new transaction.
func (s *LedgerService) AddTransaction(ctx context.Context, e core.Entry) (core.Transaction, error) {
	tx, err := s.store.Add(ctx, e)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	s.markDirty(ctx)
	return tx, nil
}

// UpdateTransaction replaces the fields of an existing transaction.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id int64, e core.Entry) (core.Transaction, error) {
	tx, err := s.store.Update(ctx, id, e)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.markDirty(ctx)
	return tx, nil
}

// DeleteTransaction removes a transaction. Unknown ids are a no-op and
// do not dirty the snapshot.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := s.store.FindByID(id); err != nil {
		// Already gone; nothing to sync.
		slog.WarnContext(ctx, "delete of unknown transaction ignored", "id", id)
		return nil
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.markDirty(ctx)
	return nil
}

// AddCustomCategory registers a user-defined category.
func (s *LedgerService) AddCustomCategory(ctx context.Context, name string) error {
	if err := s.store.AddCustomCategory(ctx, name); err != nil {
		return fmt.Errorf("add custom category: %w", err)
	}
	s.markDirty(ctx)
	return nil
}

// SetTheme persists the UI theme choice.
func (s *LedgerService) SetTheme(ctx context.Context, theme string) error {
	if err := s.store.SetTheme(ctx, theme); err != nil {
		return fmt.Errorf("set theme: %w", err)
	}
	s.markDirty(ctx)
	return nil
}

// markDirty stamps a fresh revision and nudges the worker.
func (s *LedgerService) markDirty(ctx context.Context) {
	rev, err := s.store.BumpRevision(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to bump sync revision", "error", err)
		return
	}
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.publisher.PublishSnapshotSync(ctx, rev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"revision", rev, "error", err)
		// Don't fail the request - the change is saved locally
	}
}

// ExportSnapshot encodes the full local state for upload.
func (s *LedgerService) ExportSnapshot() ([]byte, error) {
	return ledger.EncodeSnapshot(s.store.Export())
}

// RestoreSnapshot replaces local state with a downloaded snapshot and
// records the revision it carried.
func (s *LedgerService) RestoreSnapshot(ctx context.Context, data []byte, revision string) error {
	snap, err := ledger.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if err := s.store.Import(ctx, snap); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if revision != "" {
		if err := s.store.SetRevisions(ctx, revision); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
	}
	return nil
}

// Close closes the AMQP connection.
func (s *LedgerService) Close() error {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			return fmt.Errorf("close ledger service: %w", err)
		}
	}
	return nil
}
