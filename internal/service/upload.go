// Package service contains the business logic layer.
//
// This file implements the PDF upload service. Uploaded documents are stored
// in object storage (local filesystem in development, R2 in production) and
// their size is metered into the month's storage_used_mb counter.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/metrics"
	"github.com/animatepdf/animatepdf/internal/storage"
)

// MaxPDFSizeBytes limits uploaded documents to 25 MB.
const MaxPDFSizeBytes = 25 << 20

// UploadStore is the subset of the repository the upload service writes.
type UploadStore interface {
	AddStorageUsage(ctx context.Context, userID uuid.UUID, monthYear string, mb float64) (domain.UserUsage, error)
}

// UploadResult describes a stored document.
type UploadResult struct {
	Key    string  `json:"key"`
	URL    string  `json:"url"`
	SizeMB float64 `json:"size_mb"`
}

// UploadService stores user PDFs and meters storage consumption.
type UploadService interface {
	// StorePDF validates and stores an uploaded document, then meters its
	// size into the user's monthly ledger. The metering write is best-effort:
	// a failure there is logged but does not undo the stored upload.
	StorePDF(ctx context.Context, userID uuid.UUID, filename string, size int64, data io.Reader) (*UploadResult, error)
}

type uploadService struct {
	store  UploadStore
	files  storage.Storage
	logger *slog.Logger
	now    func() time.Time
}

// NewUploadService creates a new UploadService.
func NewUploadService(store UploadStore, files storage.Storage, logger *slog.Logger) UploadService {
	return &uploadService{
		store:  store,
		files:  files,
		logger: logger,
		now:    time.Now,
	}
}

// StorePDF validates and stores an uploaded document.
func (s *uploadService) StorePDF(ctx context.Context, userID uuid.UUID, filename string, size int64, data io.Reader) (*UploadResult, error) {
	const op = "upload.store_pdf"

	if userID == uuid.Nil {
		return nil, domain.Invalid(op, "user_id is required")
	}
	if size <= 0 {
		return nil, domain.Invalid(op, "document is empty")
	}
	if size > MaxPDFSizeBytes {
		return nil, domain.Invalid(op, fmt.Sprintf("document exceeds the %d MB limit", MaxPDFSizeBytes>>20))
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, domain.Invalid(op, "only PDF documents are accepted")
	}

	key := storage.DocumentKey(userID, filename)
	err := s.files.Put(ctx, key, data, storage.PutOptions{
		ContentType: "application/pdf",
		MaxSize:     MaxPDFSizeBytes,
	})
	if err != nil {
		if storage.IsTooLarge(err) {
			return nil, domain.Invalid(op, fmt.Sprintf("document exceeds the %d MB limit", MaxPDFSizeBytes>>20))
		}
		return nil, domain.Internal(err, op, "failed to store document")
	}

	url, err := s.files.URL(ctx, key, 15*time.Minute)
	if err != nil {
		s.logger.Warn("failed to generate document URL", "key", key, "error", err)
	}

	sizeMB := float64(size) / (1 << 20)
	monthYear := domain.MonthKey(s.now())
	if _, err := s.store.AddStorageUsage(ctx, userID, monthYear, sizeMB); err != nil {
		// The document is already stored and usable; metering is best-effort.
		s.logger.Error("failed to meter storage usage", "user_id", userID, "size_mb", sizeMB, "error", err)
	}

	metrics.DocumentsUploaded.Inc()
	s.logger.Info("document stored", "user_id", userID, "key", key, "size_mb", fmt.Sprintf("%.2f", sizeMB))

	return &UploadResult{Key: key, URL: url, SizeMB: sizeMB}, nil
}
