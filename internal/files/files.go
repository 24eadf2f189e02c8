// Package files stores uploaded ebook files and cover images on disk.
package files

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadBytes caps a single ebook upload.
const MaxUploadBytes = 50 << 20 // 50 MiB

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".epub": true,
	".mobi": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Store writes uploads under a base directory.
type Store struct {
	baseDir string
}

// NewStore makes sure the upload directory exists.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// SaveUpload persists a multipart file under a random name, keeping the
// original extension. Returns the path relative to the base directory.
func (s *Store) SaveUpload(header *multipart.FileHeader) (string, error) {
	if header.Size > MaxUploadBytes {
		return "", fmt.Errorf("file too large: %d bytes", header.Size)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("file type %q not allowed", ext)
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.baseDir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, MaxUploadBytes+1)); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return name, nil
}

// Open returns the stored file for streaming to a client. The name is
// cleaned so a crafted path cannot escape the base directory.
func (s *Store) Open(name string) (*os.File, error) {
	clean := filepath.Base(filepath.Clean(name))
	if clean == "." || clean == ".." || clean == "" {
		return nil, fmt.Errorf("invalid file name")
	}
	return os.Open(filepath.Join(s.baseDir, clean))
}

// Remove deletes a stored file, ignoring files that are already gone.
func (s *Store) Remove(name string) error {
	clean := filepath.Base(filepath.Clean(name))
	err := os.Remove(filepath.Join(s.baseDir, clean))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
