// Package ledger owns the canonical transaction list and its satellite
// state: user-defined categories, the UI theme, and the sync revision
// markers. Everything is held in memory and written through to the blob
// store on every mutation, the whole document replaced each time.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

// Blob store keys.
const (
	KeyLedger           = "ledger"
	KeyCustomCategories = "custom_categories"
	KeyTheme            = "theme"
	KeySyncRevision     = "sync_revision"
	KeyDriveRevision    = "drive_revision"
)

// Blobs is the persistence surface the store writes through to. Get
// returns nil for a key that was never written.
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Store holds the ledger in memory and persists it through a Blobs
// backend. All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	blobs  Blobs
	logger *slog.Logger

	transactions []core.Transaction
	custom       []string
	theme        string
	lastID       int64

	syncRevision  string
	driveRevision string
}

func NewStore(blobs Blobs, logger *slog.Logger) *Store {
	return &Store{
		blobs:  blobs,
		logger: logger.With(log.FieldComponent, log.ComponentLedger),
	}
}

// rawTransaction tolerates the loose shapes older data may carry: ids
// and amounts stored as strings or floats, missing fields.
type rawTransaction struct {
	ID       any    `json:"id"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Amount   any    `json:"amount"`
	Memo     string `json:"memo"`
}

// Load reads all persisted state into memory. Malformed transaction
// records are repaired rather than dropped: an unusable id is
// reallocated, a textual or fractional amount is parsed and rounded,
// anything else becomes zero. If any record needed repair the cleaned
// list is persisted right away, so the stored shape is canonical after
// every load.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.blobs.Get(ctx, KeyLedger)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	repaired := false
	s.transactions = nil
	if len(data) > 0 {
		var raws []rawTransaction
		if err := json.Unmarshal(data, &raws); err != nil {
			return fmt.Errorf("decode ledger: %w", err)
		}
		seen := make(map[int64]bool, len(raws))
		for _, raw := range raws {
			tx, fixed := s.normalize(raw, seen)
			repaired = repaired || fixed
			seen[tx.ID] = true
			s.transactions = append(s.transactions, tx)
		}
	}

	if s.custom, err = s.loadStrings(ctx, KeyCustomCategories); err != nil {
		return err
	}
	if s.theme, err = s.loadString(ctx, KeyTheme); err != nil {
		return err
	}
	if s.syncRevision, err = s.loadString(ctx, KeySyncRevision); err != nil {
		return err
	}
	if s.driveRevision, err = s.loadString(ctx, KeyDriveRevision); err != nil {
		return err
	}

	if repaired {
		s.logger.InfoContext(ctx, "persisting repaired ledger",
			"transactions", len(s.transactions))
		if err := s.saveLedgerLocked(ctx); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "ledger loaded",
		"transactions", len(s.transactions),
		"custom_categories", len(s.custom))
	return nil
}

// normalize coerces one raw record into a valid Transaction. seen holds
// the ids already claimed by earlier records so duplicates get fresh ids.
func (s *Store) normalize(raw rawTransaction, seen map[int64]bool) (core.Transaction, bool) {
	id, ok, idFixed := coerceID(raw.ID)
	if !ok || seen[id] {
		id = s.allocateIDLocked()
		idFixed = true
	}
	if id > s.lastID {
		s.lastID = id
	}

	amount, ok, amountFixed := coerceAmount(raw.Amount)
	if !ok {
		s.logger.Warn("unreadable amount reset to zero",
			log.FieldTransactionID, id, log.FieldDate, raw.Date)
		amount = 0
		amountFixed = true
	}

	return core.Transaction{
		ID:       id,
		Date:     raw.Date,
		Category: raw.Category,
		Amount:   amount,
		Memo:     raw.Memo,
	}, idFixed || amountFixed
}

// fixed reports that the stored form was not already a positive
// integral JSON number, so the record must be rewritten.
func coerceID(v any) (id int64, ok, fixed bool) {
	switch n := v.(type) {
	case float64:
		if n <= 0 || n != float64(int64(n)) {
			return 0, false, true
		}
		return int64(n), true, false
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil || parsed <= 0 {
			return 0, false, true
		}
		return parsed, true, true
	default:
		return 0, false, true
	}
}

// Fractional amounts round half away from zero. fixed reports that the
// stored form was textual or fractional and must be rewritten.
func coerceAmount(v any) (amount int64, ok, fixed bool) {
	switch a := v.(type) {
	case float64:
		r := math.Round(a)
		return int64(r), true, r != a
	case string:
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return 0, false, true
		}
		return int64(math.Round(f)), true, true
	default:
		return 0, false, true
	}
}

func (s *Store) loadStrings(ctx context.Context, key string) ([]string, error) {
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

func (s *Store) loadString(ctx context.Context, key string) (string, error) {
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return string(data), nil
}

func (s *Store) saveLedgerLocked(ctx context.Context) error {
	data, err := json.Marshal(s.transactionsLocked())
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.blobs.Put(ctx, KeyLedger, data); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// transactionsLocked returns the slice to marshal, never nil so the
// stored document is always a JSON array.
func (s *Store) transactionsLocked() []core.Transaction {
	if s.transactions == nil {
		return []core.Transaction{}
	}
	return s.transactions
}

// allocateIDLocked issues a unique id. Ids follow wall-clock
// milliseconds but never repeat, so back-to-back adds within the same
// millisecond still get distinct ids.
func (s *Store) allocateIDLocked() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Add appends a validated entry as a new transaction and persists the
// ledger. The stored amount carries the category's sign.
func (s *Store) Add(ctx context.Context, e core.Entry) (core.Transaction, error) {
	if err := e.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := core.Transaction{
		ID:       s.allocateIDLocked(),
		Date:     e.Date,
		Category: e.Category,
		Amount:   e.SignedAmount(),
		Memo:     e.Memo,
	}
	s.transactions = append(s.transactions, tx)

	if err := s.saveLedgerLocked(ctx); err != nil {
		s.transactions = s.transactions[:len(s.transactions)-1]
		return core.Transaction{}, err
	}
	return tx, nil
}

// Update replaces the dated fields of an existing transaction in place;
// the id and list position are preserved.
func (s *Store) Update(ctx context.Context, id int64, e core.Entry) (core.Transaction, error) {
	if err := e.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.transactions {
		if s.transactions[i].ID != id {
			continue
		}
		prev := s.transactions[i]
		s.transactions[i].Date = e.Date
		s.transactions[i].Category = e.Category
		s.transactions[i].Amount = e.SignedAmount()
		s.transactions[i].Memo = e.Memo

		if err := s.saveLedgerLocked(ctx); err != nil {
			s.transactions[i] = prev
			return core.Transaction{}, err
		}
		return s.transactions[i], nil
	}
	return core.Transaction{}, core.ErrNotFound
}

// Remove deletes the transaction with the given id. Removing an id that
// is not present is not an error; the ledger is already in the desired
// state.
func (s *Store) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.transactions {
		if s.transactions[i].ID != id {
			continue
		}
		prev := s.transactions
		s.transactions = append(s.transactions[:i:i], s.transactions[i+1:]...)
		if err := s.saveLedgerLocked(ctx); err != nil {
			s.transactions = prev
			return err
		}
		return nil
	}

	s.logger.WarnContext(ctx, "delete of unknown transaction ignored",
		log.FieldTransactionID, id)
	return nil
}

// FindByID returns the transaction with the given id.
func (s *Store) FindByID(id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

// Transactions returns a copy of the full ledger in insertion order.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// SortedByDateDesc returns the ledger ordered newest first for display.
// Records whose dates do not parse sink to the end; ties break on id so
// the newest entry of a day lists first.
func (s *Store) SortedByDateDesc() []core.Transaction {
	out := s.Transactions()
	sort.SliceStable(out, func(i, j int) bool {
		di, erri := core.ParseDate(out[i].Date)
		dj, errj := core.ParseDate(out[j].Date)
		if erri != nil || errj != nil {
			return errj != nil && erri == nil
		}
		if !di.Equal(dj.Time) {
			return di.After(dj.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Categories returns the built-in categories with the user-defined ones
// appended, duplicates removed.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(core.BaseCategories)+len(s.custom))
	seen := make(map[string]bool, cap(out))
	for _, c := range core.BaseCategories {
		out = append(out, c)
		seen[c] = true
	}
	for _, c := range s.custom {
		if !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	return out
}

// AddCustomCategory registers a user-defined category. Names already in
// the set, built-in or custom, are silently kept as they are.
func (s *Store) AddCustomCategory(ctx context.Context, name string) error {
	if name == "" {
		return core.ErrEmptyCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range core.BaseCategories {
		if c == name {
			return nil
		}
	}
	for _, c := range s.custom {
		if c == name {
			return nil
		}
	}

	s.custom = append(s.custom, name)
	data, err := json.Marshal(s.custom)
	if err != nil {
		return fmt.Errorf("encode custom categories: %w", err)
	}
	if err := s.blobs.Put(ctx, KeyCustomCategories, data); err != nil {
		s.custom = s.custom[:len(s.custom)-1]
		return fmt.Errorf("save custom categories: %w", err)
	}
	return nil
}

// Theme returns the persisted UI theme, empty when never set.
func (s *Store) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *Store) SetTheme(ctx context.Context, theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.theme
	s.theme = theme
	if err := s.blobs.Put(ctx, KeyTheme, []byte(theme)); err != nil {
		s.theme = prev
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// BumpRevision stamps a fresh revision marking local state as ahead of
// the cloud snapshot. It returns the new revision.
func (s *Store) BumpRevision(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rev := uuid.NewString()
	if err := s.blobs.Put(ctx, KeySyncRevision, []byte(rev)); err != nil {
		return "", fmt.Errorf("save sync revision: %w", err)
	}
	s.syncRevision = rev
	return rev, nil
}

// SyncRevision is the revision of the current local state.
func (s *Store) SyncRevision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncRevision
}

// DriveRevision is the last revision confirmed uploaded.
func (s *Store) DriveRevision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.driveRevision
}

// SetRevisions records both markers at once, used after a restore when
// local state exactly matches the cloud snapshot.
func (s *Store) SetRevisions(ctx context.Context, rev string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.Put(ctx, KeySyncRevision, []byte(rev)); err != nil {
		return fmt.Errorf("save sync revision: %w", err)
	}
	if err := s.blobs.Put(ctx, KeyDriveRevision, []byte(rev)); err != nil {
		return fmt.Errorf("save drive revision: %w", err)
	}
	s.syncRevision = rev
	s.driveRevision = rev
	return nil
}

func (s *Store) SetDriveRevision(ctx context.Context, rev string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.driveRevision
	s.driveRevision = rev
	if err := s.blobs.Put(ctx, KeyDriveRevision, []byte(rev)); err != nil {
		s.driveRevision = prev
		return fmt.Errorf("save drive revision: %w", err)
	}
	return nil
}
