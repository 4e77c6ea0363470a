package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	drivemem "kakeibo/internal/drive/memory"
	"kakeibo/internal/ledger"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

func newTestWorker(t *testing.T) (*SnapshotWorker, *services.LedgerService, *drivemem.Store) {
	t.Helper()
	store := ledger.NewStore(storage.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc := services.NewLedgerService(store, nil)
	cloud := drivemem.New()
	return NewSnapshotWorker(svc, cloud, cloud), svc, cloud
}

func TestHandleSyncMessageUploadsCurrentState(t *testing.T) {
	w, svc, cloud := newTestWorker(t)
	ctx := context.Background()

	if _, err := svc.AddTransaction(ctx, core.Entry{Date: "2024-03-05", Category: "Food", Amount: 1000}); err != nil {
		t.Fatal(err)
	}
	rev := svc.Store().SyncRevision()

	if err := w.HandleSyncMessage(ctx, amqp.NewSnapshotSyncMessage(rev)); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}

	data, gotRev, found, err := cloud.Download(ctx)
	if err != nil || !found {
		t.Fatalf("Download: found=%v err=%v", found, err)
	}
	if gotRev != rev {
		t.Fatalf("cloud revision = %q, want %q", gotRev, rev)
	}
	snap, err := ledger.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if len(snap.Transactions) != 1 || snap.Transactions[0].Amount != -1000 {
		t.Fatalf("uploaded snapshot = %+v", snap)
	}
	if svc.Store().DriveRevision() != rev {
		t.Fatal("drive revision not recorded after upload")
	}
}

func TestProcessPendingSkipsWhenInSync(t *testing.T) {
	w, svc, cloud := newTestWorker(t)
	ctx := context.Background()

	// Nothing ever changed locally.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if cloud.Uploads() != 0 {
		t.Fatal("nothing dirty, nothing should upload")
	}

	if _, err := svc.AddTransaction(ctx, core.Entry{Date: "2024-03-05", Category: "Food", Amount: 1}); err != nil {
		t.Fatal(err)
	}
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending after change: %v", err)
	}
	if cloud.Uploads() != 1 {
		t.Fatalf("uploads = %d, want 1", cloud.Uploads())
	}

	// In sync again: the sweep stays quiet.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatal(err)
	}
	if cloud.Uploads() != 1 {
		t.Fatal("sweep re-uploaded an unchanged snapshot")
	}
}

func TestRestoreFromCloud(t *testing.T) {
	seedWorker, seedSvc, cloud := newTestWorker(t)
	ctx := context.Background()

	if _, err := seedSvc.AddTransaction(ctx, core.Entry{Date: "2024-03-05", Category: "Food", Amount: 1000, Memo: "lunch"}); err != nil {
		t.Fatal(err)
	}
	if err := seedSvc.SetTheme(ctx, "dark"); err != nil {
		t.Fatal(err)
	}
	if err := seedWorker.ProcessPending(ctx); err != nil {
		t.Fatal(err)
	}

	// A fresh installation sharing the same cloud file.
	store := ledger.NewStore(storage.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}
	svc := services.NewLedgerService(store, nil)
	w := NewSnapshotWorker(svc, cloud, cloud)

	restored, err := w.RestoreFromCloud(ctx)
	if err != nil {
		t.Fatalf("RestoreFromCloud: %v", err)
	}
	if !restored {
		t.Fatal("expected a snapshot to restore")
	}

	txs := store.Transactions()
	if len(txs) != 1 || txs[0].Memo != "lunch" {
		t.Fatalf("restored ledger = %+v", txs)
	}
	if store.Theme() != "dark" {
		t.Fatalf("restored theme = %q", store.Theme())
	}

	// Restored state is in sync; the sweep must not upload again.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatal(err)
	}
	if cloud.Uploads() != 1 {
		t.Fatalf("uploads = %d, want 1", cloud.Uploads())
	}
}

func TestRestoreFromEmptyCloud(t *testing.T) {
	w, svc, _ := newTestWorker(t)
	ctx := context.Background()

	if _, err := svc.AddTransaction(ctx, core.Entry{Date: "2024-03-05", Category: "Food", Amount: 100}); err != nil {
		t.Fatal(err)
	}

	restored, err := w.RestoreFromCloud(ctx)
	if err != nil {
		t.Fatalf("RestoreFromCloud: %v", err)
	}
	if restored {
		t.Fatal("nothing in the cloud, nothing to restore")
	}
	if len(svc.Store().Transactions()) != 1 {
		t.Fatal("empty cloud must not wipe local state")
	}
}
