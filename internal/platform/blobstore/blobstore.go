// Package blobstore provides audio blob storage for the platform. Combined
// intake recordings and audio messages are written by the capture pipeline
// and referenced by storage path; the API only ever reads and checks them.
// It defines the Store interface, an in-memory implementation suitable for
// testing and development, and an S3-backed implementation for production.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrEmptyPath    = errors.New("blob path is required")
)

// MaxBlobSize is the maximum allowed blob size in bytes (100 MB). A combined
// intake recording at 64 kbps runs well under this for any plausible session.
const MaxBlobSize = 100 * 1024 * 1024

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store defines the contract for blob storage backends.
type Store interface {
	// Get opens the blob at path for reading. Returns ErrBlobNotFound when
	// no blob exists at that path.
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Put writes the blob at path, replacing any existing content.
	Put(ctx context.Context, path, contentType string, content io.Reader) (*BlobInfo, error)
	// Stat returns metadata for the blob at path without reading it.
	Stat(ctx context.Context, path string) (*BlobInfo, error)
	// Delete removes the blob at path. Deleting a missing blob is not an error.
	Delete(ctx context.Context, path string) error
}

type storedBlob struct {
	info    BlobInfo
	content []byte
}

// MemoryStore is a thread-safe, in-memory Store for testing and development.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

// NewMemoryStore returns a ready-to-use MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string]*storedBlob),
	}
}

func (s *MemoryStore) Get(_ context.Context, path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	s.mu.RLock()
	blob, ok := s.blobs[path]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}

	return io.NopCloser(bytes.NewReader(blob.content)), nil
}

func (s *MemoryStore) Put(_ context.Context, path, contentType string, content io.Reader) (*BlobInfo, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxBlobSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxBlobSize {
		return nil, fmt.Errorf("blob at %s exceeds maximum size", path)
	}

	info := BlobInfo{
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		UpdatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.blobs[path] = &storedBlob{info: info, content: data}
	s.mu.Unlock()

	return &info, nil
}

func (s *MemoryStore) Stat(_ context.Context, path string) (*BlobInfo, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[path]
	if !ok {
		return nil, ErrBlobNotFound
	}

	info := blob.info
	return &info, nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	s.mu.Lock()
	delete(s.blobs, path)
	s.mu.Unlock()
	return nil
}
