package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mediastudio/internal/domain"
)

// Bucket names accepted by the store and the URL signer.
const (
	BucketUserUploads     = "user-uploads"
	BucketEditedImages    = "edited-images"
	BucketGeneratedVideos = "generated-videos"
	BucketThumbnails      = "thumbnails"
)

var buckets = map[string]struct{}{
	BucketUserUploads:     {},
	BucketEditedImages:    {},
	BucketGeneratedVideos: {},
	BucketThumbnails:      {},
}

// ValidateBucket rejects buckets outside the allow-list.
func ValidateBucket(bucket string) error {
	if _, ok := buckets[bucket]; !ok {
		return &domain.ValidationError{Field: "bucket", Message: fmt.Sprintf("unknown bucket %q", bucket)}
	}
	return nil
}

// FileStore keeps blobs on the local filesystem, one directory per bucket.
// It stands in for object storage in development and tests.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Write stores data under bucket/key and returns the canonical key.
func (s *FileStore) Write(ctx context.Context, bucket, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath, cleanKey, err := s.resolve(bucket, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// Exists reports whether bucket/key holds a regular file.
func (s *FileStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fullPath, _, err := s.resolve(bucket, key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: stat: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// Open returns the file at bucket/key. A missing file yields domain.ErrNotFound.
func (s *FileStore) Open(ctx context.Context, bucket, key string) (*os.File, fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	fullPath, _, err := s.resolve(bucket, key)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("storage: open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("storage: stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, domain.ErrNotFound
	}
	return f, info, nil
}

func (s *FileStore) resolve(bucket, key string) (string, string, error) {
	if s == nil {
		return "", "", errors.New("storage: no store configured")
	}
	if err := ValidateBucket(bucket); err != nil {
		return "", "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.basePath, bucket, filepath.FromSlash(cleanKey)), cleanKey, nil
}

// sanitizeKey normalizes a key and prevents escaping the bucket root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", &domain.ValidationError{Field: "path", Message: "is required"}
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &domain.ValidationError{Field: "path", Message: "is invalid"}
	}
	return cleaned, nil
}

var _ domain.BlobStore = (*FileStore)(nil)
