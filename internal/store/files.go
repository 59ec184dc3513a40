package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileMetadata describes one uploaded file on disk.
type FileMetadata struct {
	ID          string
	Filename    string
	Path        string
	Size        int64
	ContentType string
	UploadedAt  time.Time
}

// FileStore saves uploaded files under a single directory and keeps their
// metadata in memory. Files are prefixed with a UUID so duplicate names
// never collide.
type FileStore struct {
	mu        sync.RWMutex
	uploadDir string
	files     map[string]FileMetadata
}

// NewFileStore creates the upload directory if needed.
func NewFileStore(uploadDir string) (*FileStore, error) {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &FileStore{
		uploadDir: uploadDir,
		files:     make(map[string]FileMetadata),
	}, nil
}

// Save writes the content to disk and returns the stored metadata.
func (s *FileStore) Save(r io.Reader, filename, contentType string) (FileMetadata, error) {
	id := uuid.New().String()
	path := filepath.Join(s.uploadDir, id+"_"+filepath.Base(filename))

	f, err := os.Create(path)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("creating upload file: %w", err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return FileMetadata{}, fmt.Errorf("writing upload file: %w", err)
	}

	meta := FileMetadata{
		ID:          id,
		Filename:    filename,
		Path:        path,
		Size:        size,
		ContentType: contentType,
		UploadedAt:  time.Now(),
	}

	s.mu.Lock()
	s.files[id] = meta
	s.mu.Unlock()

	return meta, nil
}

// Get returns metadata for an uploaded file id.
func (s *FileStore) Get(id string) (FileMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.files[id]
	return meta, ok
}
