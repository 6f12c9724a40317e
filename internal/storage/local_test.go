package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func newTestLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	s, err := NewLocalStorage(LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files/",
	}, logger)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	return s
}

// =============================================================================
// Put / Get / Delete Tests
// =============================================================================

func TestLocalStorage_PutAndGet(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()
	content := []byte("%PDF-1.7 test")

	err := s.Put(ctx, "documents/u1/doc.pdf", bytes.NewReader(content), PutOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reader, info, err := s.Get(ctx, "documents/u1/doc.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reader.Close()

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("stored content does not round-trip")
	}
	if info.Size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), info.Size)
	}
	if info.ContentType != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", info.ContentType)
	}
}

func TestLocalStorage_PutRefusesOverwriteByDefault(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	if err := s.Put(ctx, "a.pdf", strings.NewReader("one"), PutOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := s.Put(ctx, "a.pdf", strings.NewReader("two"), PutOptions{})
	if !errors.Is(err, ErrKeyExists) {
		t.Errorf("expected ErrKeyExists, got %v", err)
	}

	if err := s.Put(ctx, "a.pdf", strings.NewReader("two"), PutOptions{Overwrite: true}); err != nil {
		t.Errorf("overwrite should be allowed when requested: %v", err)
	}
}

func TestLocalStorage_PutEnforcesMaxSize(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	err := s.Put(ctx, "big.pdf", strings.NewReader("0123456789"), PutOptions{MaxSize: 5})
	if !IsTooLarge(err) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	// The partial file must not linger
	exists, err := s.Exists(ctx, "big.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("oversized upload should not leave a file behind")
	}
}

func TestLocalStorage_GetMissing(t *testing.T) {
	s := newTestLocalStorage(t)

	_, _, err := s.Get(context.Background(), "missing.pdf")
	if !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStorage_DeleteIsIdempotent(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	if err := s.Put(ctx, "a.pdf", strings.NewReader("x"), PutOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(ctx, "a.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(ctx, "a.pdf"); err != nil {
		t.Errorf("deleting a missing key should succeed: %v", err)
	}
}

// =============================================================================
// Key Validation Tests
// =============================================================================

func TestLocalStorage_RejectsPathTraversal(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	keys := []string{
		"",
		"../outside.pdf",
		"documents/../../outside.pdf",
	}
	for _, key := range keys {
		if err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{}); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestLocalStorage_URL(t *testing.T) {
	s := newTestLocalStorage(t)

	url, err := s.URL(context.Background(), "documents/u1/doc.pdf", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "http://localhost:8080/files/documents/u1/doc.pdf"
	if url != want {
		t.Errorf("expected %s, got %s", want, url)
	}
}
