// Package pack orchestrates the VCS binary as a child process to avoid
// re-implementing the pack format: a transient, minimal repository skeleton
// is used as scratch space for "unpack incoming pack into loose objects" and
// "pack a set of loose objects for emission" child invocations.
package pack

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// gitBinary is the VCS binary name, overridable in tests.
var gitBinary = "git"

// skeleton is a transient working directory containing a minimal VCS
// repository, used as scratch space for a single pack unpack or pack build.
type skeleton struct {
	dir string
}

// newSkeleton creates a transient directory and initializes a bare VCS
// repository inside it.
func newSkeleton() (*skeleton, error) {
	dir, err := os.MkdirTemp("", "git-remote-walrus-skel-*")
	if err != nil {
		return nil, fmt.Errorf("pack: create skeleton dir: %w", err)
	}
	s := &skeleton{dir: dir}

	cmd := exec.Command(gitBinary, "init", "--bare", "--quiet", dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		s.remove()
		return nil, &Error{Op: "init", Err: err, Output: out}
	}
	return s, nil
}

// objectsDir is the skeleton's loose-object directory root.
func (s *skeleton) objectsDir() string {
	return filepath.Join(s.dir, "objects")
}

// remove deletes the skeleton directory. Safe to call multiple times.
func (s *skeleton) remove() {
	if s.dir != "" {
		_ = os.RemoveAll(s.dir)
	}
}
