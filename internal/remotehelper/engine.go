// Package remotehelper implements the line-oriented remote-helper protocol
// engine (spec.md §4.G): a state machine reading commands from standard
// input and emitting responses to standard output, with diagnostics to
// standard error. It dispatches fetch/push to a Backend, keeping protocol
// mechanics separate from storage — the same separation the teacher draws
// between its RemoteHelper-shaped command loop and its Storer abstraction
// (see other_examples' foks-proj-go-git-remhelp for the archetype).
package remotehelper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Capabilities are the fixed set this engine advertises. import/export are
// deliberately absent: the fast-export textual format drops embedded
// cryptographic signatures and cannot round-trip commit identity (spec.md §4.G, §9).
var Capabilities = []string{
	"fetch",
	"push",
	"refspec refs/heads/*:refs/heads/*",
	"refspec refs/tags/*:refs/tags/*",
}

// recognizedOptions is the fixed table of `option` keys this engine
// understands; anything else is answered "unsupported" rather than
// silently accepted (supplemented detail from original_source, see
// SPEC_FULL.md).
var recognizedOptions = map[string]bool{
	"verbosity": true,
	"progress":  true,
}

// FetchWant is one requested fetch target: the wanted object name and the
// ref it was requested for (diagnostic only; the name alone drives the
// fetch).
type FetchWant struct {
	Name string
	Ref  string
}

// PushUpdate is one "<src>:<dst>" batch entry. An empty Src (from a
// "push :<dst>" line) or the all-zero object name means ref deletion.
type PushUpdate struct {
	Src string
	Dst string
}

// PushResult reports the outcome of one ref update.
type PushResult struct {
	Ref string
	Err error
}

// Backend is the storage/orchestration side the engine dispatches to. The
// engine itself never touches the object store, blob store, or ledger
// directly.
type Backend interface {
	// ListRefs returns the remote's current refs and its default branch
	// (the ref named by the synthetic "@<default> HEAD" line).
	ListRefs(ctx context.Context, forPush bool) (refs map[string]string, defaultRef string, err error)
	// Fetch writes a packfile satisfying wants to w.
	Fetch(ctx context.Context, w io.Writer, wants []FetchWant) error
	// Push applies updates, reading the incoming packfile from pack.
	Push(ctx context.Context, updates []PushUpdate, pack io.Reader) ([]PushResult, error)
}

// Engine is the remote-helper protocol state machine.
type Engine struct {
	in      *bufio.Reader
	out     io.Writer
	errOut  io.Writer
	backend Backend
}

// NewEngine constructs an Engine reading commands from in, writing protocol
// responses to out, and diagnostics to errOut.
func NewEngine(in io.Reader, out, errOut io.Writer, backend Backend) *Engine {
	return &Engine{in: bufio.NewReader(in), out: out, errOut: errOut, backend: backend}
}

// Run drives the state machine until EOF (clean termination) or a protocol
// error (fatal).
func (e *Engine) Run(ctx context.Context) error {
	for {
		line, err := e.readLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("remotehelper: read command: %w", err)
		}

		switch {
		case line == "capabilities":
			if err := e.handleCapabilities(); err != nil {
				return err
			}
		case line == "":
			return nil
		case strings.HasPrefix(line, "list"):
			if err := e.handleList(ctx, line); err != nil {
				return err
			}
		case strings.HasPrefix(line, "option "):
			if err := e.handleOption(line); err != nil {
				return err
			}
		case strings.HasPrefix(line, "fetch "):
			if err := e.handleFetchBatch(ctx, line); err != nil {
				return err
			}
		case strings.HasPrefix(line, "push "):
			if err := e.handlePushBatch(ctx, line); err != nil {
				return err
			}
		default:
			return fmt.Errorf("remotehelper: unrecognized command %q", line)
		}
	}
}

// readLine reads one line with its trailing newline stripped. io.EOF is
// returned verbatim when no bytes were read at all.
func (e *Engine) readLine() (string, error) {
	line, err := e.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if err == io.EOF && line == "" {
		return "", io.EOF
	}
	return strings.TrimRight(line, "\n"), nil
}

func (e *Engine) handleCapabilities() error {
	for _, c := range Capabilities {
		if _, err := fmt.Fprintf(e.out, "%s\n", c); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(e.out, "\n")
	return err
}

func (e *Engine) handleList(ctx context.Context, line string) error {
	forPush := strings.Contains(line, "for-push")
	refs, defaultRef, err := e.backend.ListRefs(ctx, forPush)
	if err != nil {
		return fmt.Errorf("remotehelper: list: %w", err)
	}

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(e.out, "%s %s\n", refs[name], name); err != nil {
			return err
		}
	}
	if defaultRef != "" {
		if _, err := fmt.Fprintf(e.out, "@%s HEAD\n", defaultRef); err != nil {
			return err
		}
	}
	_, err = fmt.Fprint(e.out, "\n")
	return err
}

func (e *Engine) handleOption(line string) error {
	parts := strings.SplitN(strings.TrimPrefix(line, "option "), " ", 2)
	key := parts[0]
	if recognizedOptions[key] {
		_, err := fmt.Fprint(e.out, "ok\n")
		return err
	}
	_, err := fmt.Fprint(e.out, "unsupported\n")
	return err
}

func (e *Engine) handleFetchBatch(ctx context.Context, firstLine string) error {
	wants := []FetchWant{mustParseFetch(firstLine)}
	for {
		line, err := e.readLine()
		if err != nil {
			return fmt.Errorf("remotehelper: read fetch batch: %w", err)
		}
		if line == "" {
			break
		}
		if !strings.HasPrefix(line, "fetch ") {
			return fmt.Errorf("remotehelper: expected fetch or blank line, got %q", line)
		}
		wants = append(wants, mustParseFetch(line))
	}

	if err := e.backend.Fetch(ctx, e.out, wants); err != nil {
		return fmt.Errorf("remotehelper: fetch: %w", err)
	}
	_, err := fmt.Fprint(e.out, "\n")
	return err
}

func mustParseFetch(line string) FetchWant {
	fields := strings.Fields(strings.TrimPrefix(line, "fetch "))
	w := FetchWant{}
	if len(fields) > 0 {
		w.Name = fields[0]
	}
	if len(fields) > 1 {
		w.Ref = fields[1]
	}
	return w
}

func (e *Engine) handlePushBatch(ctx context.Context, firstLine string) error {
	updates := []PushUpdate{mustParsePush(firstLine)}
	for {
		line, err := e.readLine()
		if err != nil {
			return fmt.Errorf("remotehelper: read push batch: %w", err)
		}
		if line == "" {
			break
		}
		if !strings.HasPrefix(line, "push ") {
			return fmt.Errorf("remotehelper: expected push or blank line, got %q", line)
		}
		updates = append(updates, mustParsePush(line))
	}

	results, err := e.backend.Push(ctx, updates, e.in)
	if err != nil {
		return fmt.Errorf("remotehelper: push: %w", err)
	}
	for _, r := range results {
		if r.Err != nil {
			if _, err := fmt.Fprintf(e.out, "error %s %s\n", r.Ref, sanitizeMessage(r.Err.Error())); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(e.out, "ok %s\n", r.Ref); err != nil {
			return err
		}
	}
	_, err = fmt.Fprint(e.out, "\n")
	return err
}

func mustParsePush(line string) PushUpdate {
	spec := strings.TrimPrefix(line, "push ")
	spec = strings.TrimPrefix(spec, "+") // force-push marker
	src, dst, ok := strings.Cut(spec, ":")
	if !ok {
		return PushUpdate{Dst: spec}
	}
	return PushUpdate{Src: src, Dst: dst}
}

// sanitizeMessage collapses an error message onto one line: the protocol's
// "error <ref> <msg>" line is itself newline-terminated.
func sanitizeMessage(msg string) string {
	return strings.ReplaceAll(strings.ReplaceAll(msg, "\r", " "), "\n", " ")
}
