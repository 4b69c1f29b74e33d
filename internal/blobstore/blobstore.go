// Package blobstore defines the immutable, content-addressed blob store
// abstraction (spec.md §4.C) and its two backends: a local directory
// (internal/blobstore/local) and a remote Walrus blob store driven through
// the walrus CLI binary (internal/blobstore/walrus).
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get/GetMany when a content-id is absent, or
// (for the remote backend) has expired.
var ErrNotFound = errors.New("blobstore: not found")

// Store is the abstract immutable blob store.
type Store interface {
	// Put is idempotent: repeated puts of identical bytes return the same
	// content-id.
	Put(ctx context.Context, data []byte) (contentID string, err error)
	Get(ctx context.Context, contentID string) ([]byte, error)
	Exists(ctx context.Context, contentID string) (bool, error)
	// PutMany and GetMany are order-preserving batch variants.
	PutMany(ctx context.Context, items [][]byte) ([]string, error)
	GetMany(ctx context.Context, contentIDs []string) ([][]byte, error)
}

// putManySequential and getManySequential give backends without a native
// batch API an order-preserving implementation built on Put/Get.
func putManySequential(ctx context.Context, s Store, items [][]byte) ([]string, error) {
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

func getManySequential(ctx context.Context, s Store, contentIDs []string) ([][]byte, error) {
	out := make([][]byte, len(contentIDs))
	for i, id := range contentIDs {
		data, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}
