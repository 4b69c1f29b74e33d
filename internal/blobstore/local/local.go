// Package local implements the local-directory immutable blob store
// backend: content-id is the hex of a 256-bit digest of the bytes, writes
// go through temp-file + rename, reads are whole-file.
package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wbbradley/git-remote-walrus/internal/blobstore"
)

// Store is a directory-backed content-addressed blob store.
type Store struct {
	root string
}

// New creates a Store rooted at dir. The directory is created lazily on
// first write.
func New(dir string) *Store {
	return &Store{root: dir}
}

func contentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) path(id string) (string, error) {
	if len(id) < 2 {
		return "", fmt.Errorf("blobstore/local: invalid content-id %q", id)
	}
	return filepath.Join(s.root, id[:2], id[2:]), nil
}

// Put stores data and returns its content-id. Idempotent: an existing
// blob under the same id is left untouched and no additional I/O occurs.
func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	id := contentID(data)
	path, err := s.path(id)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("blobstore/local: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("blobstore/local: create tempfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("blobstore/local: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("blobstore/local: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("blobstore/local: rename: %w", err)
	}
	return id, nil
}

// Get returns the full payload for contentID, or blobstore.ErrNotFound if
// absent.
func (s *Store) Get(_ context.Context, id string) ([]byte, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, fmt.Errorf("blobstore/local: read %s: %w", id, err)
	}
	return data, nil
}

// Exists reports whether id is present in the store.
func (s *Store) Exists(_ context.Context, id string) (bool, error) {
	path, err := s.path(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("blobstore/local: stat %s: %w", id, err)
}

// PutMany stores each item, order-preserving.
func (s *Store) PutMany(ctx context.Context, items [][]byte) ([]string, error) {
	ids := make([]string, len(items))
	for i, data := range items {
		id, err := s.Put(ctx, data)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// GetMany reads each content-id, order-preserving.
func (s *Store) GetMany(ctx context.Context, ids []string) ([][]byte, error) {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		data, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

var _ blobstore.Store = (*Store)(nil)
