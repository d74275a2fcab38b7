package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
)

// FileStore keeps blobs under a root directory, sharded by the first two
// bytes of the digest. Writes go through a temp file and a rename so a
// reader never observes a partial blob.
type FileStore struct {
	root   string
	logger *logger.Logger
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FileStore{root: root, logger: log}, nil
}

func (s *FileStore) path(d string) string {
	return filepath.Join(s.root, d[:2], d[2:4], d)
}

// Put stores data and returns its pointer. Existing blobs are not rewritten.
func (s *FileStore) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pointer := Address(data)
	d, _ := digest(pointer)
	final := s.path(d)

	if _, err := os.Stat(final); err == nil {
		return pointer, nil
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o750); err != nil {
		return "", fmt.Errorf("create blob shard: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(final), "blob-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync blob: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err = os.Rename(tmpPath, final); err != nil {
		return "", fmt.Errorf("commit blob: %w", err)
	}

	s.logger.Debug().Str("func", "FileStore.Put").Str("pointer", pointer).Int("size", len(data)).Msg("blob stored")
	return pointer, nil
}

// Get returns the bytes behind pointer after checking they still hash to it.
func (s *FileStore) Get(ctx context.Context, pointer string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := digest(pointer)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(d))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	if Address(data) != pointer {
		s.logger.Error().Str("func", "FileStore.Get").Str("pointer", pointer).Msg("stored blob does not match its address")
		return nil, ErrCorrupt
	}

	return data, nil
}
