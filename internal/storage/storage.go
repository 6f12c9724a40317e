// Package storage provides object storage for uploaded PDF documents.
//
// Two implementations back the Storage interface: LocalStorage keeps files on
// the local filesystem for development, R2Storage uses Cloudflare R2
// (S3-compatible) in production.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Storage defines the interface for document storage operations.
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at the specified key with the given options.
	// Returns ErrKeyExists if the key exists and overwrite is disabled.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at the specified key. The caller must close the
	// reader. Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for accessing the object. For private objects this
	// is a presigned URL valid for the given duration.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type of the object. Detected from the key when
	// empty.
	ContentType string

	// MaxSize limits the object size in bytes; 0 means no limit. Oversized
	// data yields ErrTooLarge.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool

	// Public marks the object publicly readable (R2 only).
	Public bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	BasePath string // root directory, e.g. "./storage"
	BaseURL  string // public URL prefix, e.g. "http://localhost:8080/files"
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string // optional custom-domain URL; presigned URLs otherwise
	Region          string // any valid region string works for R2; default "auto"
}

// Storage provider identifiers.
const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// DocumentKey generates a storage key for an uploaded PDF.
// Format: documents/{userID}/{uuid}.pdf. The original filename only
// contributes its extension, never its user-controlled name.
func DocumentKey(userID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("documents/%s/%s%s", userID, uuid.New(), ext)
}
