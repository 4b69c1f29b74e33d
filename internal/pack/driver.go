package pack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wbbradley/git-remote-walrus/internal/object"
)

// Unpack ingests a packfile read from r by launching the VCS's "unpack pack
// into loose objects" child against a transient skeleton repository, then
// enumerating and decoding every resulting loose object. The driver is a
// pure byte pipe: object bytes are never modified, only relocated.
//
// The returned objects are in no particular order; the skeleton is always
// removed before Unpack returns, on every exit path.
func Unpack(ctx context.Context, r io.Reader) ([]*object.Object, error) {
	s, err := newSkeleton()
	if err != nil {
		return nil, err
	}
	defer s.remove()

	cmd := exec.CommandContext(ctx, gitBinary, "-C", s.dir, "unpack-objects", "-q")
	cmd.Stdin = r
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &Error{Op: "unpack-objects", Err: err, Output: stderr.Bytes()}
	}

	return readLooseObjects(s.objectsDir())
}

// Pack materializes each object in wants into a transient skeleton's object
// directory, then launches the VCS's "build a pack from an object list"
// child, streaming its standard output directly to w. haveNames are not
// materialized; they are only passed to the child as "^<name>" lines. The
// driver never inspects or rewrites the produced pack bytes.
func Pack(ctx context.Context, w io.Writer, wants []object.Object, haveNames []object.Hash) error {
	s, err := newSkeleton()
	if err != nil {
		return err
	}
	defer s.remove()

	for _, obj := range wants {
		if err := writeLooseObject(s.objectsDir(), obj); err != nil {
			return err
		}
	}

	var stdin bytes.Buffer
	for _, obj := range wants {
		stdin.WriteString(string(obj.Name))
		stdin.WriteByte('\n')
	}
	// haveNames are negotiation bases the receiver already has; the VCS
	// binary treats "^<name>" lines as exclusions when present.
	for _, h := range haveNames {
		stdin.WriteByte('^')
		stdin.WriteString(string(h))
		stdin.WriteByte('\n')
	}

	cmd := exec.CommandContext(ctx, gitBinary, "-C", s.dir, "pack-objects", "--stdout", "-q")
	cmd.Stdin = &stdin
	cmd.Stdout = w
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &Error{Op: "pack-objects", Err: err, Output: stderr.Bytes()}
	}
	return nil
}

// readLooseObjects walks a fan-out objects/ directory (objects/ab/cdef...)
// and decodes every loose object found under it.
func readLooseObjects(objectsDir string) ([]*object.Object, error) {
	var out []*object.Object
	entries, err := os.ReadDir(objectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("pack: list objects dir: %w", err)
	}
	for _, fanout := range entries {
		if !fanout.IsDir() || len(fanout.Name()) != 2 {
			continue
		}
		subdir := filepath.Join(objectsDir, fanout.Name())
		files, err := os.ReadDir(subdir)
		if err != nil {
			return nil, fmt.Errorf("pack: list objects subdir: %w", err)
		}
		for _, f := range files {
			if f.IsDir() || len(f.Name()) != 38 {
				continue
			}
			path := filepath.Join(subdir, f.Name())
			framed, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("pack: read loose object %s%s: %w", fanout.Name(), f.Name(), err)
			}
			obj, err := object.Decode(framed)
			if err != nil {
				return nil, fmt.Errorf("pack: decode loose object %s%s: %w", fanout.Name(), f.Name(), err)
			}
			out = append(out, obj)
		}
	}
	return out, nil
}

// writeLooseObject re-derives an object's deflate-compressed framing and
// writes it into a skeleton's fan-out object directory so a VCS child
// process can find it by name.
func writeLooseObject(objectsDir string, obj object.Object) error {
	name, framed, err := object.Encode(obj.Type, obj.Payload)
	if err != nil {
		return fmt.Errorf("pack: re-encode %s: %w", obj.Name, err)
	}
	if name != obj.Name {
		return fmt.Errorf("pack: re-encoded name %s does not match stored name %s", name, obj.Name)
	}

	dir := filepath.Join(objectsDir, string(name[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("pack: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, string(name[2:]))
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("pack: write loose object tmpfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(framed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("pack: write loose object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("pack: write loose object close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("pack: write loose object rename: %w", err)
	}
	return nil
}

// gitVersion runs "git --version" and returns its trimmed output, or an
// error naming the binary when no usable VCS binary is on PATH.
func gitVersion(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, gitBinary, "--version")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pack: %s --version: %w", gitBinary, err)
	}
	return strings.TrimSpace(string(out)), nil
}
