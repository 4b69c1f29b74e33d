// Package state implements the state record: the mutable index mapping
// ref names to object names and object names to blob content-ids. The
// remote backend stores a serialized Record as a blob and keeps only its
// content-id on-ledger, so the serialization must be deterministic — the
// whole record is content-addressed when stored remotely.
package state

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/wbbradley/git-remote-walrus/internal/object"
)

// Record is the {refs, objects} pair described in spec.md §3/§4.D.
type Record struct {
	// Refs maps ref-name (e.g. "heads/main") to object-name.
	Refs map[string]object.Hash
	// Objects maps object-name to the blob store's content-id for it.
	Objects map[object.Hash]string
}

// New returns an empty state record.
func New() *Record {
	return &Record{
		Refs:    make(map[string]object.Hash),
		Objects: make(map[object.Hash]string),
	}
}

// wireRefEntry and wireObjectEntry back the TOML array-of-tables encoding.
// Using sorted slices instead of encoding the maps directly is what makes
// serialization deterministic: map iteration order is not specified by Go,
// but a slice sorted by key always serializes to the same bytes.
type wireRefEntry struct {
	Name   string `toml:"name"`
	Object string `toml:"object"`
}

type wireObjectEntry struct {
	Name      string `toml:"name"`
	ContentID string `toml:"content_id"`
}

type wireRecord struct {
	Refs    []wireRefEntry    `toml:"refs"`
	Objects []wireObjectEntry `toml:"objects"`
}

// Marshal serializes r to its canonical, deterministic text form: keys
// sorted, stable escaping (delegated to the TOML encoder's string quoting).
func Marshal(r *Record) ([]byte, error) {
	wire := wireRecord{
		Refs:    make([]wireRefEntry, 0, len(r.Refs)),
		Objects: make([]wireObjectEntry, 0, len(r.Objects)),
	}
	for name, h := range r.Refs {
		wire.Refs = append(wire.Refs, wireRefEntry{Name: name, Object: string(h)})
	}
	sort.Slice(wire.Refs, func(i, j int) bool { return wire.Refs[i].Name < wire.Refs[j].Name })

	for h, id := range r.Objects {
		wire.Objects = append(wire.Objects, wireObjectEntry{Name: string(h), ContentID: id})
	}
	sort.Slice(wire.Objects, func(i, j int) bool { return wire.Objects[i].Name < wire.Objects[j].Name })

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, fmt.Errorf("state: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a serialized state record.
func Unmarshal(data []byte) (*Record, error) {
	var wire wireRecord
	if err := toml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("state: unmarshal: %w", err)
	}
	r := New()
	for _, e := range wire.Refs {
		r.Refs[e.Name] = object.Hash(e.Object)
	}
	for _, e := range wire.Objects {
		r.Objects[object.Hash(e.Name)] = e.ContentID
	}
	return r, nil
}

// Merge adds entries to r.Objects from new, never removing existing
// entries, per spec.md §4.H step 6.
func (r *Record) Merge(newObjects map[object.Hash]string) {
	for h, id := range newObjects {
		r.Objects[h] = id
	}
}
