package local

import (
	"bytes"
	"context"
	"testing"

	"github.com/wbbradley/git-remote-walrus/internal/blobstore"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	id, err := s.Put(ctx, []byte("hello blob"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(data, []byte("hello blob")) {
		t.Errorf("got %q, want %q", data, "hello blob")
	}
}

func TestPutIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	id1, err := s.Put(ctx, []byte("same content"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	id2, err := s.Put(ctx, []byte("same content"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected equal ids, got %q and %q", id1, id2)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	_, err := s.Get(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	if err != blobstore.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	id, err := s.Put(ctx, []byte("exists test"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err := s.Exists(ctx, id)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("expected Exists to return true for stored blob")
	}
	ok, err = s.Exists(ctx, "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("expected Exists to return false for unknown id")
	}
}

func TestPutManyGetManyOrderPreserving(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	items := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	ids, err := s.PutMany(ctx, items)
	if err != nil {
		t.Fatalf("PutMany: %v", err)
	}
	got, err := s.GetMany(ctx, ids)
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	for i, item := range items {
		if !bytes.Equal(got[i], item) {
			t.Errorf("index %d: got %q, want %q", i, got[i], item)
		}
	}
}
