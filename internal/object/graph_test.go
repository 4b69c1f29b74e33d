package object

import (
	"encoding/hex"
	"reflect"
	"testing"
)

func TestCommitRefsParsesTreeAndParents(t *testing.T) {
	payload := []byte("tree aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n" +
		"parent bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb\n" +
		"parent cccccccccccccccccccccccccccccccccccccccc\n" +
		"author a <a@example.com> 0 +0000\n" +
		"committer a <a@example.com> 0 +0000\n" +
		"\n" +
		"message\n")
	refs, err := Refs(&Object{Type: TypeCommit, Payload: payload})
	if err != nil {
		t.Fatalf("Refs: %v", err)
	}
	want := []Hash{
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"cccccccccccccccccccccccccccccccccccccccc",
	}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("got %v, want %v", refs, want)
	}
}

func TestTagRefsParsesObject(t *testing.T) {
	payload := []byte("object dddddddddddddddddddddddddddddddddddddddd\n" +
		"type commit\n" +
		"tag v1\n" +
		"tagger a <a@example.com> 0 +0000\n" +
		"\n" +
		"v1\n")
	refs, err := Refs(&Object{Type: TypeTag, Payload: payload})
	if err != nil {
		t.Fatalf("Refs: %v", err)
	}
	want := []Hash{"dddddddddddddddddddddddddddddddddddddddd"}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("got %v, want %v", refs, want)
	}
}

func TestTreeRefsParsesBinaryEntries(t *testing.T) {
	sha1 := mustDecodeHex(t, "1111111111111111111111111111111111111111")
	sha2 := mustDecodeHex(t, "2222222222222222222222222222222222222222")
	var payload []byte
	payload = append(payload, []byte("100644 file.txt\x00")...)
	payload = append(payload, sha1...)
	payload = append(payload, []byte("40000 subdir\x00")...)
	payload = append(payload, sha2...)

	refs, err := Refs(&Object{Type: TypeTree, Payload: payload})
	if err != nil {
		t.Fatalf("Refs: %v", err)
	}
	want := []Hash{"1111111111111111111111111111111111111111", "2222222222222222222222222222222222222222"}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("got %v, want %v", refs, want)
	}
}

func TestBlobRefsEmpty(t *testing.T) {
	refs, err := Refs(&Object{Type: TypeBlob, Payload: []byte("hello")})
	if err != nil {
		t.Fatalf("Refs: %v", err)
	}
	if refs != nil {
		t.Errorf("expected nil refs, got %v", refs)
	}
}

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex.DecodeString(%q): %v", s, err)
	}
	return b
}
