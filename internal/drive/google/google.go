// Package google implements the drive ports on the Google Drive API
// using service account credentials.
package google

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"

	ports "kakeibo/internal/drive"
)

const revisionProperty = "ledgerRevision"

type Client struct {
	svc      *gdrive.Service
	folderID string
	fileName string
}

// Ensure interface conformance
var (
	_ ports.SnapshotUploader   = (*Client)(nil)
	_ ports.SnapshotDownloader = (*Client)(nil)
)

// NewFromEnv creates a Drive client from environment variables.
// Required: service account credentials (see newDriveService).
// Optional: GOOGLE_DRIVE_FOLDER_ID to place the snapshot in a folder,
// SNAPSHOT_FILE_NAME (default "kakeibo-data.json").
func NewFromEnv(ctx context.Context) (*Client, error) {
	fileName := strings.TrimSpace(os.Getenv("SNAPSHOT_FILE_NAME"))
	if fileName == "" {
		fileName = "kakeibo-data.json"
	}

	svc, err := newDriveService(ctx)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}

	return &Client{
		svc:      svc,
		folderID: strings.TrimSpace(os.Getenv("GOOGLE_DRIVE_FOLDER_ID")),
		fileName: fileName,
	}, nil
}

// newDriveService initializes a Drive Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newDriveService(ctx context.Context) (*gdrive.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gdrive.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gdrive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return service, nil
}

// findSnapshot locates the snapshot file, returning nil when it does
// not exist yet.
func (c *Client) findSnapshot(ctx context.Context) (*gdrive.File, error) {
	query := fmt.Sprintf("name = '%s' and trashed = false", c.fileName)
	if c.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", c.folderID)
	}

	list, err := c.svc.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id, name, appProperties)").
		PageSize(1).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list snapshot files: %w", err)
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return list.Files[0], nil
}

// Upload writes the snapshot document, replacing the previous one in
// place so the Drive file id stays stable across uploads.
func (c *Client) Upload(ctx context.Context, data []byte, revision string) (string, error) {
	if c.svc == nil {
		return "", errors.New("drive service not initialized")
	}

	existing, err := c.findSnapshot(ctx)
	if err != nil {
		return "", err
	}

	meta := &gdrive.File{
		MimeType:      "application/json",
		AppProperties: map[string]string{revisionProperty: revision},
	}

	var file *gdrive.File
	if existing != nil {
		file, err = c.svc.Files.Update(existing.Id, meta).
			Context(ctx).
			Media(bytes.NewReader(data)).
			Fields("id").
			Do()
		if err != nil {
			return "", fmt.Errorf("update snapshot file: %w", err)
		}
	} else {
		meta.Name = c.fileName
		if c.folderID != "" {
			meta.Parents = []string{c.folderID}
		}
		file, err = c.svc.Files.Create(meta).
			Context(ctx).
			Media(bytes.NewReader(data)).
			Fields("id").
			Do()
		if err != nil {
			return "", fmt.Errorf("create snapshot file: %w", err)
		}
	}

	slog.InfoContext(ctx, "Snapshot uploaded to Drive",
		"file_id", file.Id,
		"revision", revision,
		"bytes", len(data))
	return file.Id, nil
}

// Download fetches the current snapshot document and the revision it
// was tagged with at upload time.
func (c *Client) Download(ctx context.Context) ([]byte, string, bool, error) {
	if c.svc == nil {
		return nil, "", false, errors.New("drive service not initialized")
	}

	existing, err := c.findSnapshot(ctx)
	if err != nil {
		return nil, "", false, err
	}
	if existing == nil {
		return nil, "", false, nil
	}

	resp, err := c.svc.Files.Get(existing.Id).Context(ctx).Download()
	if err != nil {
		return nil, "", false, fmt.Errorf("download snapshot file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", false, fmt.Errorf("read snapshot body: %w", err)
	}

	return data, existing.AppProperties[revisionProperty], true, nil
}
