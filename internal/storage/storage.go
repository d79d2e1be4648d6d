// Package storage provides archiving of completed job artifacts.
// Provider-hosted result URLs expire; the Archiver mirrors them into owned
// storage (local disk or S3) and returns a durable replacement URL.
package storage

import (
	"context"
	"errors"
)

// ErrDownloadFailed is returned when the source asset cannot be fetched.
var ErrDownloadFailed = errors.New("storage: download failed")

// Archiver defines the port for mirroring result assets.
type Archiver interface {
	// Archive downloads the asset at srcURL, stores it under key, and
	// returns the durable URL of the stored copy.
	Archive(ctx context.Context, key, srcURL string) (url string, err error)
}
