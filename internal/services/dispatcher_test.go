package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/storage"
)

type recordingPublisher struct {
	revisions []string
	fail      bool
}

func (p *recordingPublisher) PublishSnapshotSync(_ context.Context, revision string) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.revisions = append(p.revisions, revision)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestService(t *testing.T) (*LedgerService, *recordingPublisher) {
	t.Helper()
	store := ledger.NewStore(storage.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	pub := &recordingPublisher{}
	return NewLedgerService(store, pub), pub
}

func TestSubmitAddsWhenIdle(t *testing.T) {
	svc, pub := newTestService(t)
	d := NewDispatcher(svc)
	ctx := context.Background()

	tx, err := d.Submit(ctx, SubmitEntry{Entry: core.Entry{Date: "2024-03-05", Category: "Food", Amount: 1000}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if tx.Amount != -1000 {
		t.Fatalf("amount = %d, want -1000", tx.Amount)
	}
	if _, editing := d.Session().Editing(); editing {
		t.Fatal("add must not start an edit session")
	}
	if len(pub.revisions) != 1 {
		t.Fatalf("published %d sync messages, want 1", len(pub.revisions))
	}
}

func TestSubmitUpdatesWhenEditing(t *testing.T) {
	svc, _ := newTestService(t)
	d := NewDispatcher(svc)
	ctx := context.Background()

	tx, _ := d.Submit(ctx, SubmitEntry{Entry: core.Entry{Date: "2024-03-05", Category: "Food", Amount: 1000}})

	fill, err := d.Edit(ctx, StartEdit{ID: tx.ID})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if fill.Amount != 1000 {
		t.Fatalf("form amount = %d, want unsigned 1000", fill.Amount)
	}

	updated, err := d.Submit(ctx, SubmitEntry{Entry: core.Entry{Date: "2024-03-06", Category: "Transport", Amount: 800}})
	if err != nil {
		t.Fatalf("Submit update: %v", err)
	}
	if updated.ID != tx.ID {
		t.Fatalf("update minted a new id: %d -> %d", tx.ID, updated.ID)
	}
	if _, editing := d.Session().Editing(); editing {
		t.Fatal("successful update must end the edit session")
	}
	if got := len(svc.Store().Transactions()); got != 1 {
		t.Fatalf("ledger has %d transactions, want 1", got)
	}
}

func TestSubmitInvalidKeepsEditSession(t *testing.T) {
	svc, _ := newTestService(t)
	d := NewDispatcher(svc)
	ctx := context.Background()

	tx, _ := d.Submit(ctx, SubmitEntry{Entry: core.Entry{Date: "2024-03-05", Category: "Food", Amount: 1000}})
	if _, err := d.Edit(ctx, StartEdit{ID: tx.ID}); err != nil {
		t.Fatal(err)
	}

	_, err := d.Submit(ctx, SubmitEntry{Entry: core.Entry{Date: "2024-03-06", Category: "Transport"}})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if id, editing := d.Session().Editing(); !editing || id != tx.ID {
		t.Fatal("failed update must keep the edit session active")
	}
}

func TestCancelEdit(t *testing.T) {
	svc, _ := newTestService(t)
	d := NewDispatcher(svc)
	ctx := context.Background()

	tx, _ := d.Submit(ctx, SubmitEntry{Entry: core.Entry{Date: "2024-03-05", Category: "Food", Amount: 1000}})
	if _, err := d.Edit(ctx, StartEdit{ID: tx.ID}); err != nil {
		t.Fatal(err)
	}
	d.Cancel(ctx, CancelEdit{})

	if _, editing := d.Session().Editing(); editing {
		t.Fatal("cancel must end the edit session")
	}
	got, err := svc.Store().FindByID(tx.ID)
	if err != nil || got.Amount != -1000 {
		t.Fatalf("cancel must not change the transaction: %+v, %v", got, err)
	}
}

func TestDeleteWhileEditingEndsSession(t *testing.T) {
	svc, _ := newTestService(t)
	d := NewDispatcher(svc)
	ctx := context.Background()

	tx, _ := d.Submit(ctx, SubmitEntry{Entry: core.Entry{Date: "2024-03-05", Category: "Food", Amount: 1000}})
	other, _ := d.Submit(ctx, SubmitEntry{Entry: core.Entry{Date: "2024-03-06", Category: "Food", Amount: 500}})

	if _, err := d.Edit(ctx, StartEdit{ID: tx.ID}); err != nil {
		t.Fatal(err)
	}

	// Deleting an unrelated transaction keeps the session.
	if err := d.Delete(ctx, DeleteTransaction{ID: other.ID}); err != nil {
		t.Fatal(err)
	}
	if id, editing := d.Session().Editing(); !editing || id != tx.ID {
		t.Fatal("deleting another transaction must not end the session")
	}

	if err := d.Delete(ctx, DeleteTransaction{ID: tx.ID}); err != nil {
		t.Fatal(err)
	}
	if _, editing := d.Session().Editing(); editing {
		t.Fatal("deleting the edited transaction must end the session")
	}
}

func TestEditUnknownTransaction(t *testing.T) {
	svc, _ := newTestService(t)
	d := NewDispatcher(svc)

	if _, err := d.Edit(context.Background(), StartEdit{ID: 12345}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, editing := d.Session().Editing(); editing {
		t.Fatal("failed edit start must leave the session idle")
	}
}

func TestSelectPeriod(t *testing.T) {
	svc, _ := newTestService(t)
	d := NewDispatcher(svc)
	ctx := context.Background()

	if err := d.Select(ctx, SelectPeriod{Year: 2023, Month: time.July}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	year, month := d.Period()
	if year != 2023 || month != time.July {
		t.Fatalf("period = %d-%d", year, month)
	}

	// Adding a transaction elsewhere never moves the selected period.
	if _, err := d.Submit(ctx, SubmitEntry{Entry: core.Entry{Date: "2024-03-05", Category: "Food", Amount: 1}}); err != nil {
		t.Fatal(err)
	}
	year, month = d.Period()
	if year != 2023 || month != time.July {
		t.Fatalf("add moved the period to %d-%d", year, month)
	}

	if err := d.Select(ctx, SelectPeriod{Year: 2024, Month: 13}); err == nil {
		t.Fatal("month 13 must be rejected")
	}
}

func TestMutationsSurviveBrokerOutage(t *testing.T) {
	svc, pub := newTestService(t)
	pub.fail = true
	d := NewDispatcher(svc)
	ctx := context.Background()

	tx, err := d.Submit(ctx, SubmitEntry{Entry: core.Entry{Date: "2024-03-05", Category: "Food", Amount: 1000}})
	if err != nil {
		t.Fatalf("Submit with dead broker: %v", err)
	}
	if _, err := svc.Store().FindByID(tx.ID); err != nil {
		t.Fatal("transaction must be stored even when publish fails")
	}
	if svc.Store().SyncRevision() == "" {
		t.Fatal("revision must still be bumped so the sweep can catch up")
	}
}

func TestDeleteUnknownIDDoesNotDirtySnapshot(t *testing.T) {
	svc, pub := newTestService(t)
	d := NewDispatcher(svc)

	if err := d.Delete(context.Background(), DeleteTransaction{ID: 999}); err != nil {
		t.Fatalf("Delete unknown: %v", err)
	}
	if len(pub.revisions) != 0 {
		t.Fatal("no-op delete must not publish a sync message")
	}
}
