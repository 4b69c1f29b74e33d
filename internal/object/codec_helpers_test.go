package object

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zlib"
)

// encodeRaw builds a deflate-compressed frame with an arbitrary (possibly
// incorrect) declared length, to exercise Decode's validation paths.
func encodeRaw(t Type, declaredLen int, payload []byte) ([]byte, error) {
	header := fmt.Sprintf("%s %d\x00", t, declaredLen)
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(append([]byte(header), payload...)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeRawType builds a deflate-compressed frame with an arbitrary type
// name, to exercise Decode's type-validation path.
func encodeRawType(typeName string, payload []byte) ([]byte, error) {
	header := fmt.Sprintf("%s %d\x00", typeName, len(payload))
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(append([]byte(header), payload...)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
