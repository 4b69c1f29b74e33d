// Package cache implements the local dual-indexed cache (spec.md §4.F): one
// index keyed by object-name (the way the VCS keys loose objects), one
// keyed by blob content-id (to avoid re-downloading an already-fetched
// blob). Both indices are populated on first observation and kept
// consistent; a miss is advisory and always falls back to the remote blob
// store. The on-disk layout (temp-file + rename, 2-char fan-out) mirrors
// the teacher's object.Store.
package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wbbradley/git-remote-walrus/internal/object"
)

// Cache is the dual-indexed on-disk cache. It may be discarded at any time
// and shared across concurrent helper invocations for different remotes;
// every write goes through temp-file + rename for atomicity.
type Cache struct {
	root string
}

// New creates a Cache rooted at dir. Subdirectories are created lazily.
func New(dir string) *Cache {
	return &Cache{root: dir}
}

func (c *Cache) byNamePath(h object.Hash) string {
	s := string(h)
	return filepath.Join(c.root, "by-name", s[:2], s[2:])
}

func (c *Cache) byBlobPath(contentID string) string {
	if len(contentID) < 2 {
		return filepath.Join(c.root, "by-blob", "_short", contentID)
	}
	return filepath.Join(c.root, "by-blob", contentID[:2], contentID[2:])
}

// entry is the on-disk payload for the by-name index: enough to
// reconstruct a full object.Object without re-fetching.
type entry struct {
	Type    object.Type
	Payload []byte
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache: create tempfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: rename: %w", err)
	}
	return nil
}

// HasObject reports whether the by-name index has an entry for h.
func (c *Cache) HasObject(h object.Hash) bool {
	_, err := os.Stat(c.byNamePath(h))
	return err == nil
}

// GetObject reads an object by name from the by-name index. The second
// return value is false on a cache miss.
func (c *Cache) GetObject(h object.Hash) (*object.Object, bool) {
	data, err := os.ReadFile(c.byNamePath(h))
	if err != nil {
		return nil, false
	}
	e, err := decodeEntry(data)
	if err != nil {
		return nil, false
	}
	return &object.Object{Name: h, Type: e.Type, Payload: e.Payload}, true
}

// PutObject records obj in the by-name index.
func (c *Cache) PutObject(obj *object.Object) error {
	data := encodeEntry(entry{Type: obj.Type, Payload: obj.Payload})
	return writeAtomic(c.byNamePath(obj.Name), data)
}

// HasBlob reports whether the by-blob index has content for contentID.
func (c *Cache) HasBlob(contentID string) bool {
	_, err := os.Stat(c.byBlobPath(contentID))
	return err == nil
}

// GetBlob reads raw bytes by blob content-id. The second return value is
// false on a cache miss.
func (c *Cache) GetBlob(contentID string) ([]byte, bool) {
	data, err := os.ReadFile(c.byBlobPath(contentID))
	if err != nil {
		return nil, false
	}
	return data, true
}

// PutBlob records raw bytes under the by-blob index.
func (c *Cache) PutBlob(contentID string, data []byte) error {
	return writeAtomic(c.byBlobPath(contentID), data)
}

// ObserveDownload records both indices after a blob has been downloaded and
// decoded into an object: the by-blob entry (so the bytes needn't be
// re-fetched) and the by-name entry (so graph walks find it locally).
func (c *Cache) ObserveDownload(contentID string, obj *object.Object, raw []byte) error {
	if err := c.PutBlob(contentID, raw); err != nil {
		return err
	}
	return c.PutObject(obj)
}

// encodeEntry/decodeEntry use the same "<type> <len>\0<payload>" framing as
// the loose-object codec, minus compression: the cache is local-disk
// scratch space, not an interchange format, so there is no need to pay for
// deflate here.
func encodeEntry(e entry) []byte {
	header := fmt.Sprintf("%s %d\x00", e.Type, len(e.Payload))
	out := make([]byte, 0, len(header)+len(e.Payload))
	out = append(out, header...)
	out = append(out, e.Payload...)
	return out
}

func decodeEntry(data []byte) (entry, error) {
	for i, b := range data {
		if b == 0 {
			header := string(data[:i])
			var t string
			var n int
			if _, err := fmt.Sscanf(header, "%s %d", &t, &n); err != nil {
				return entry{}, fmt.Errorf("cache: malformed entry header %q: %w", header, err)
			}
			payload := data[i+1:]
			if len(payload) != n {
				return entry{}, fmt.Errorf("cache: entry length mismatch: header=%d actual=%d", n, len(payload))
			}
			return entry{Type: object.Type(t), Payload: payload}, nil
		}
	}
	return entry{}, fmt.Errorf("cache: missing header terminator")
}
