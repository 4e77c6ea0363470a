// Package drive defines the outbound ports for cloud snapshot storage.
package drive

import "context"

// Ports for outbound adapters.
type (
	// SnapshotUploader stores a snapshot document in the cloud, tagged
	// with the ledger revision it captures. It returns an opaque file
	// reference for logging.
	SnapshotUploader interface {
		Upload(ctx context.Context, data []byte, revision string) (fileRef string, err error)
	}

	// SnapshotDownloader fetches the current cloud snapshot. found is
	// false when no snapshot has ever been uploaded.
	SnapshotDownloader interface {
		Download(ctx context.Context) (data []byte, revision string, found bool, err error)
	}
)
