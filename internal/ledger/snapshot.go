package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"kakeibo/internal/core"
)

// Snapshot is the full document exchanged with cloud storage. The field
// names match the export format users already hold, so a file written by
// one installation restores cleanly on another.
type Snapshot struct {
	Transactions     []core.Transaction `json:"transactions"`
	CustomCategories []string           `json:"customCategories"`
	Theme            string             `json:"theme,omitempty"`
}

// Export captures the current state as a snapshot.
func (s *Store) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Transactions:     make([]core.Transaction, len(s.transactions)),
		CustomCategories: make([]string, len(s.custom)),
		Theme:            s.theme,
	}
	copy(snap.Transactions, s.transactions)
	copy(snap.CustomCategories, s.custom)
	return snap
}

// Import replaces local state with the snapshot's contents and persists
// everything. A nil transaction list in the snapshot leaves the local
// ledger untouched; same for categories. An empty theme never clears a
// set one.
func (s *Store) Import(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Transactions != nil {
		s.transactions = make([]core.Transaction, len(snap.Transactions))
		copy(s.transactions, snap.Transactions)
		s.lastID = 0
		for _, tx := range s.transactions {
			if tx.ID > s.lastID {
				s.lastID = tx.ID
			}
		}
		if err := s.saveLedgerLocked(ctx); err != nil {
			return err
		}
	}

	if snap.CustomCategories != nil {
		s.custom = make([]string, len(snap.CustomCategories))
		copy(s.custom, snap.CustomCategories)
		data, err := json.Marshal(s.custom)
		if err != nil {
			return fmt.Errorf("encode custom categories: %w", err)
		}
		if err := s.blobs.Put(ctx, KeyCustomCategories, data); err != nil {
			return fmt.Errorf("save custom categories: %w", err)
		}
	}

	if snap.Theme != "" {
		s.theme = snap.Theme
		if err := s.blobs.Put(ctx, KeyTheme, []byte(snap.Theme)); err != nil {
			return fmt.Errorf("save theme: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "snapshot imported",
		"transactions", len(snap.Transactions),
		"custom_categories", len(snap.CustomCategories))
	return nil
}

// EncodeSnapshot renders a snapshot as the JSON document stored in the
// cloud.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	if snap.Transactions == nil {
		snap.Transactions = []core.Transaction{}
	}
	if snap.CustomCategories == nil {
		snap.CustomCategories = []string{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a cloud snapshot document.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
