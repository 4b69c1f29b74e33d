package pack

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/wbbradley/git-remote-walrus/internal/object"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(gitBinary); err != nil {
		t.Skip("git binary not available on PATH")
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	blobName, blobFramed, err := object.Encode(object.TypeBlob, []byte("hello from the pack driver\n"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var packBuf bytes.Buffer
	want := object.Object{Name: blobName, Type: object.TypeBlob, Payload: []byte("hello from the pack driver\n")}
	if err := Pack(ctx, &packBuf, []object.Object{want}, nil); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if packBuf.Len() == 0 {
		t.Fatal("Pack produced an empty stream")
	}

	objs, err := Unpack(ctx, bytes.NewReader(packBuf.Bytes()))
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	var found *object.Object
	for _, o := range objs {
		if o.Name == blobName {
			found = o
			break
		}
	}
	if found == nil {
		t.Fatalf("unpacked objects did not include %s; got %d objects", blobName, len(objs))
	}
	if !bytes.Equal(found.Payload, want.Payload) {
		t.Errorf("payload mismatch: got %q, want %q", found.Payload, want.Payload)
	}
	_ = blobFramed
}

func TestUnpackEmptyPack(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	var packBuf bytes.Buffer
	if err := Pack(ctx, &packBuf, nil, nil); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	objs, err := Unpack(ctx, bytes.NewReader(packBuf.Bytes()))
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if len(objs) != 0 {
		t.Errorf("expected 0 objects from empty pack, got %d", len(objs))
	}
}
