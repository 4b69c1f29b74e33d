package object

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// Encode builds the canonical loose-object framing for (t, payload), hashes
// the uncompressed framing to produce the object name, and returns the
// deflate-compressed on-disk/on-blob-store form alongside it.
func Encode(t Type, payload []byte) (Hash, []byte, error) {
	if !t.Valid() {
		return "", nil, &UnknownTypeError{Type: string(t)}
	}
	name := HashObject(t, payload)

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(frame(t, payload)); err != nil {
		w.Close()
		return "", nil, fmt.Errorf("object encode %s: deflate: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("object encode %s: deflate close: %w", name, err)
	}
	return name, buf.Bytes(), nil
}

// Decode inflates framed bytes, parses the "<type> <len>\0" header, verifies
// the declared length against the actual payload, and computes the object's
// canonical name.
func Decode(framed []byte) (*Object, error) {
	r, err := zlib.NewReader(bytes.NewReader(framed))
	if err != nil {
		return nil, fmt.Errorf("object decode: inflate: %w", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("object decode: inflate: %w", err)
	}

	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return nil, fmt.Errorf("object decode: missing header terminator")
	}
	header := string(raw[:nul])
	payload := raw[nul+1:]

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("object decode: malformed header %q", header)
	}
	t := Type(parts[0])
	if !t.Valid() {
		return nil, &UnknownTypeError{Type: parts[0]}
	}
	declared, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("object decode: malformed length %q: %w", parts[1], err)
	}
	if declared != len(payload) {
		return nil, &FramedLengthError{Header: declared, Actual: len(payload)}
	}

	name := HashObject(t, payload)
	return &Object{Name: name, Type: t, Payload: payload}, nil
}
