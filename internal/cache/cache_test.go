package cache

import (
	"bytes"
	"testing"

	"github.com/wbbradley/git-remote-walrus/internal/object"
)

func TestObjectIndexRoundTrip(t *testing.T) {
	c := New(t.TempDir())
	obj := &object.Object{
		Name:    object.Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Type:    object.TypeBlob,
		Payload: []byte("cached payload"),
	}
	if c.HasObject(obj.Name) {
		t.Fatal("expected cache miss before write")
	}
	if err := c.PutObject(obj); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if !c.HasObject(obj.Name) {
		t.Fatal("expected cache hit after write")
	}
	got, ok := c.GetObject(obj.Name)
	if !ok {
		t.Fatal("GetObject: miss after write")
	}
	if got.Type != obj.Type || !bytes.Equal(got.Payload, obj.Payload) {
		t.Errorf("round-trip mismatch: got %+v, want %+v", got, obj)
	}
}

func TestBlobIndexRoundTrip(t *testing.T) {
	c := New(t.TempDir())
	if c.HasBlob("blob-id-1") {
		t.Fatal("expected cache miss before write")
	}
	if err := c.PutBlob("blob-id-1", []byte("raw bytes")); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	data, ok := c.GetBlob("blob-id-1")
	if !ok {
		t.Fatal("GetBlob: miss after write")
	}
	if !bytes.Equal(data, []byte("raw bytes")) {
		t.Errorf("got %q, want %q", data, "raw bytes")
	}
}

func TestObserveDownloadPopulatesBothIndices(t *testing.T) {
	c := New(t.TempDir())
	obj := &object.Object{
		Name:    object.Hash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
		Type:    object.TypeCommit,
		Payload: []byte("tree deadbeef\n"),
	}
	if err := c.ObserveDownload("blob-id-2", obj, []byte("tree deadbeef\n")); err != nil {
		t.Fatalf("ObserveDownload: %v", err)
	}
	if !c.HasObject(obj.Name) {
		t.Error("by-name index not populated")
	}
	if !c.HasBlob("blob-id-2") {
		t.Error("by-blob index not populated")
	}
}

func TestGetObjectMiss(t *testing.T) {
	c := New(t.TempDir())
	if _, ok := c.GetObject(object.Hash("ffffffffffffffffffffffffffffffffffffffff")); ok {
		t.Error("expected miss for unknown object")
	}
}
