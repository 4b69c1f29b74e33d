// Package object implements the loose-object codec: the canonical
// "<type> <size>\0<payload>" framing used by the VCS for commits, trees,
// blobs, and tags, plus the 40-hex object name derived from it.
package object

import "fmt"

// Hash is a 40-character lowercase hex-encoded object name.
type Hash string

// Type identifies the kind of a loose object.
type Type string

const (
	TypeCommit Type = "commit"
	TypeTree   Type = "tree"
	TypeBlob   Type = "blob"
	TypeTag    Type = "tag"
)

// Valid reports whether t is one of the four object types the VCS defines.
func (t Type) Valid() bool {
	switch t {
	case TypeCommit, TypeTree, TypeBlob, TypeTag:
		return true
	default:
		return false
	}
}

// Object is a decoded loose object: its canonical name, type, and payload.
type Object struct {
	Name    Hash
	Type    Type
	Payload []byte
}

// FramedLengthError reports a length mismatch between an object's header
// and its actual payload.
type FramedLengthError struct {
	Header int
	Actual int
}

func (e *FramedLengthError) Error() string {
	return fmt.Sprintf("object length mismatch: header declares %d, payload is %d", e.Header, e.Actual)
}

// UnknownTypeError reports a loose-object header naming a type the codec
// does not recognize.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown object type %q", e.Type)
}
