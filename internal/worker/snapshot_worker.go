package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/drive"
	"kakeibo/internal/services"
)

// SnapshotWorker keeps the cloud snapshot in step with the local ledger.
// The fast path reacts to AMQP sync messages; the sweep path compares
// the local and uploaded revisions so missed messages never leave the
// cloud copy behind for good.
type SnapshotWorker struct {
	svc        *services.LedgerService
	uploader   drive.SnapshotUploader
	downloader drive.SnapshotDownloader
}

func NewSnapshotWorker(svc *services.LedgerService, uploader drive.SnapshotUploader, downloader drive.SnapshotDownloader) *SnapshotWorker {
	return &SnapshotWorker{
		svc:        svc,
		uploader:   uploader,
		downloader: downloader,
	}
}

// HandleSyncMessage processes a single snapshot sync message from AMQP.
// The message revision may already be stale; the current local revision
// wins, so a burst of mutations collapses into one upload.
func (w *SnapshotWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SnapshotSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "revision", msg.Revision)
	return w.uploadCurrent(ctx)
}

// ProcessPending uploads the snapshot when the local revision has moved
// past the last confirmed upload. This is the backup mechanism in case
// AMQP messages are lost.
func (w *SnapshotWorker) ProcessPending(ctx context.Context) error {
	store := w.svc.Store()
	local := store.SyncRevision()
	if local == "" || local == store.DriveRevision() {
		return nil
	}

	slog.InfoContext(ctx, "Cloud snapshot behind local state, uploading",
		"local_revision", local,
		"drive_revision", store.DriveRevision())
	return w.uploadCurrent(ctx)
}

// StartupCheck runs once at worker start to recover from downtime.
func (w *SnapshotWorker) StartupCheck(ctx context.Context) error {
	if err := w.ProcessPending(ctx); err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	return nil
}

func (w *SnapshotWorker) uploadCurrent(ctx context.Context) error {
	store := w.svc.Store()
	revision := store.SyncRevision()

	data, err := w.svc.ExportSnapshot()
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}

	ref, err := w.uploader.Upload(ctx, data, revision)
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	if err := store.SetDriveRevision(ctx, revision); err != nil {
		slog.ErrorContext(ctx, "Failed to record drive revision",
			"revision", revision, "error", err)
		// Don't return error here - the upload actually worked
	}

	slog.InfoContext(ctx, "Snapshot synced to cloud",
		"revision", revision,
		"drive_ref", ref,
		"bytes", len(data))
	return nil
}

// RestoreFromCloud pulls the cloud snapshot into the local ledger. It
// is used on a fresh installation; when the cloud holds nothing the
// local state stays as it is.
func (w *SnapshotWorker) RestoreFromCloud(ctx context.Context) (bool, error) {
	if w.downloader == nil {
		return false, fmt.Errorf("no snapshot downloader configured")
	}

	data, revision, found, err := w.downloader.Download(ctx)
	if err != nil {
		return false, fmt.Errorf("download snapshot: %w", err)
	}
	if !found {
		slog.InfoContext(ctx, "No cloud snapshot to restore")
		return false, nil
	}

	if err := w.svc.RestoreSnapshot(ctx, data, revision); err != nil {
		return false, err
	}

	slog.InfoContext(ctx, "Restored ledger from cloud snapshot",
		"revision", revision,
		"bytes", len(data))
	return true, nil
}
