package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kakeibo/internal/amqp"
	"kakeibo/internal/cli"
	gdrive "kakeibo/internal/drive/google"
	"kakeibo/internal/services"
	"kakeibo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting kakeibo-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	store, cleanup := cli.InitLedger(logger, cfg)
	defer cleanup()

	driveClient, err := gdrive.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Drive client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Drive client initialized", "folder_id", cfg.DriveFolderID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	svc := services.NewLedgerService(store, nil)
	snapshotWorker := worker.NewSnapshotWorker(svc, driveClient, driveClient)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// First boot on an empty ledger can pull the cloud copy down.
	if cfg.RestoreOnStart && len(store.Transactions()) == 0 {
		restored, err := snapshotWorker.RestoreFromCloud(ctx)
		if err != nil {
			logger.Error("Restore from cloud failed", "error", err)
		} else if restored {
			logger.Info("Restored ledger from cloud snapshot")
		} else {
			logger.Info("No cloud snapshot to restore")
		}
	}

	logger.Info("Performing startup sync check...")
	if err := snapshotWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", "error", err)
		// Keep running; the periodic sweep retries.
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeSnapshotSync(gctx, func(msg *amqp.SnapshotSyncMessage) error {
			return snapshotWorker.HandleSyncMessage(gctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := snapshotWorker.ProcessPending(gctx); err != nil {
					logger.Error("Periodic sync failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
