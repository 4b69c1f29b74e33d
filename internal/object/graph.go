package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Refs returns the object names obj directly references: a commit's tree
// and parents, a tag's tagged object, or a tree's entries. Blobs have no
// refs. Used to walk the object graph locally without re-deriving it from
// the VCS binary (spec.md §4.H fetch step 3).
func Refs(obj *Object) ([]Hash, error) {
	switch obj.Type {
	case TypeBlob:
		return nil, nil
	case TypeCommit:
		return commitRefs(obj.Payload)
	case TypeTag:
		return tagRefs(obj.Payload)
	case TypeTree:
		return treeRefs(obj.Payload)
	default:
		return nil, &UnknownTypeError{Type: string(obj.Type)}
	}
}

// commitRefs scans the header lines (terminated by the first blank line,
// which separates headers from the commit message) for "tree " and
// "parent " entries.
func commitRefs(payload []byte) ([]Hash, error) {
	var refs []Hash
	for _, line := range headerLines(payload) {
		switch {
		case bytes.HasPrefix(line, []byte("tree ")):
			refs = append(refs, Hash(bytes.TrimSpace(line[len("tree "):])))
		case bytes.HasPrefix(line, []byte("parent ")):
			refs = append(refs, Hash(bytes.TrimSpace(line[len("parent "):])))
		}
	}
	return refs, nil
}

func tagRefs(payload []byte) ([]Hash, error) {
	for _, line := range headerLines(payload) {
		if bytes.HasPrefix(line, []byte("object ")) {
			return []Hash{Hash(bytes.TrimSpace(line[len("object "):]))}, nil
		}
	}
	return nil, nil
}

// headerLines splits payload into lines up to (not including) the first
// blank line, matching the commit/tag "headers, blank line, message" shape.
func headerLines(payload []byte) [][]byte {
	var lines [][]byte
	rest := payload
	for len(rest) > 0 {
		idx := bytes.IndexByte(rest, '\n')
		var line []byte
		if idx < 0 {
			line, rest = rest, nil
		} else {
			line, rest = rest[:idx], rest[idx+1:]
		}
		if len(line) == 0 {
			break
		}
		lines = append(lines, line)
	}
	return lines
}

// treeRefs parses the binary tree entry format: a run of
// "<octal-mode> <name>\x00<20-byte-sha>" entries with no separators between
// them.
func treeRefs(payload []byte) ([]Hash, error) {
	var refs []Hash
	rest := payload
	for len(rest) > 0 {
		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, fmt.Errorf("object: truncated tree entry header")
		}
		if len(rest) < nul+1+20 {
			return nil, fmt.Errorf("object: truncated tree entry sha")
		}
		sha := rest[nul+1 : nul+1+20]
		refs = append(refs, Hash(hex.EncodeToString(sha)))
		rest = rest[nul+1+20:]
	}
	return refs, nil
}
