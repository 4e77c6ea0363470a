// Command drive-init verifies Google Drive credentials and folder access
// before the worker is deployed: it builds a client from the environment
// and looks up the snapshot file, reporting what it finds.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"kakeibo/internal/cli"
	gdrive "kakeibo/internal/drive/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := gdrive.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to build Drive client", "error", err)
		os.Exit(1)
	}

	data, revision, found, err := client.Download(ctx)
	if err != nil {
		logger.Error("Drive access check failed", "error", err)
		os.Exit(1)
	}

	if !found {
		fmt.Println("Drive access OK. No snapshot uploaded yet.")
		return
	}

	fmt.Printf("Drive access OK. Snapshot found: %d bytes, revision %q.\n", len(data), revision)
}
