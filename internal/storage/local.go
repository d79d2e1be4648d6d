package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Compile-time check that LocalArchiver implements Archiver.
var _ Archiver = (*LocalArchiver)(nil)

// LocalArchiver mirrors assets onto local disk.
// Suitable for development; the directory is expected to be served by a
// reverse proxy or fronted by the public base URL.
type LocalArchiver struct {
	dir        string
	baseURL    string
	httpClient *http.Client
}

// NewLocalArchiver creates an archiver that stores assets under dir.
// Returned URLs are baseURL + "/" + key. The directory is created if it
// doesn't exist.
func NewLocalArchiver(dir, baseURL string) (*LocalArchiver, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "genstudio-archive")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("storage: create archive directory: %w", err)
	}
	return &LocalArchiver{
		dir:        dir,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Archive downloads the asset and writes it under the archive directory.
func (a *LocalArchiver) Archive(ctx context.Context, key, srcURL string) (string, error) {
	body, err := download(ctx, a.httpClient, srcURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	dest := filepath.Join(a.dir, filepath.Clean("/"+key))
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return "", fmt.Errorf("storage: create key directory: %w", err)
	}

	f, err := os.Create(dest) // #nosec G304 - dest is rooted in the archive dir
	if err != nil {
		return "", fmt.Errorf("storage: create archive file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("storage: write archive file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("storage: close archive file: %w", err)
	}

	if a.baseURL != "" {
		return a.baseURL + "/" + key, nil
	}
	return "file://" + dest, nil
}

// download fetches the asset at srcURL.
// The caller is responsible for closing the returned body.
func download(ctx context.Context, client *http.Client, srcURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d from %s", ErrDownloadFailed, resp.StatusCode, srcURL)
	}
	return resp.Body, nil
}
