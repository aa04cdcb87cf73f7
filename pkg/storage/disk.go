// Package storage is the object store that holds sale receipts.
//
// Two drivers are available:
//   - "local" writes under a directory and serves it at STORAGE_URL
//   - "s3"    any S3-compatible store (AWS S3, MinIO, R2, Spaces)
//
// Quick start:
//
//	disk, err := storage.New(ctx, cfg.Storage)
//	err = disk.Put(ctx, "receipts/sale-42.pdf", pdf, "application/pdf")
//	url := disk.URL("receipts/sale-42.pdf")
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/storefront-go/storefront/config"
)

// ErrNotFound is returned by Get for a key that does not exist.
var ErrNotFound = errors.New("storage: object not found")

// ErrInvalidPath is returned for keys that are empty or escape the root.
var ErrInvalidPath = errors.New("storage: invalid path")

// Disk is the object store interface. Every driver must implement this.
type Disk interface {
	// Put writes content under key, replacing anything already there.
	Put(ctx context.Context, key string, content []byte, contentType string) error

	// Get returns the full content stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Returns nil if it did not exist.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for key.
	URL(key string) string
}

// New builds the disk named by cfg.Disk.
func New(ctx context.Context, cfg config.StorageConfig) (Disk, error) {
	switch cfg.Disk {
	case "", "local":
		return NewLocal(cfg.LocalRoot, cfg.URL)
	case "s3":
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("storage: unknown disk %q", cfg.Disk)
	}
}

// cleanKey normalises key to a slash-separated relative path.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", ErrInvalidPath
	}
	return k, nil
}
