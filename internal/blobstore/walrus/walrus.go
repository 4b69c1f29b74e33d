// Package walrus implements the remote blob-store backend: bytes are
// uploaded to the Walrus network with a lifetime expressed in epochs, and
// the backend returns a ledger-addressable blob-id handle. The "walrus"
// client binary is an external collaborator (spec.md §1) invoked as a child
// process, the same treatment the pack driver gives the VCS binary.
package walrus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/wbbradley/git-remote-walrus/internal/blobstore"
)

// walrusBinary is the CLI binary name, overridable in tests.
var walrusBinary = "walrus"

// Store is a remote blob store backed by the Walrus network.
type Store struct {
	ConfigPath     string
	DefaultEpochs  int
	CommandTimeout time.Duration
}

// New creates a Store. defaultEpochs falls back to 5 (spec.md §4.C) when
// non-positive.
func New(configPath string, defaultEpochs int) *Store {
	if defaultEpochs <= 0 {
		defaultEpochs = 5
	}
	return &Store{ConfigPath: configPath, DefaultEpochs: defaultEpochs, CommandTimeout: 30 * time.Second}
}

func (s *Store) timeoutCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	d := s.CommandTimeout
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (s *Store) configArgs() []string {
	if s.ConfigPath == "" {
		return nil
	}
	return []string{"--config", s.ConfigPath}
}

// storeResult mirrors the relevant subset of `walrus store --json` output:
// either an already-certified (deduplicated) blob or a newly-created one.
type storeResult struct {
	BlobStoreResult struct {
		AlreadyCertified *struct {
			BlobID string `json:"blobId"`
		} `json:"alreadyCertified"`
		NewlyCreated *struct {
			BlobObject struct {
				BlobID string `json:"blobId"`
			} `json:"blobObject"`
		} `json:"newlyCreated"`
	} `json:"blobStoreResult"`
}

// Put uploads data with the store's default epoch lifetime.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	return s.putWithEpochs(ctx, data, s.DefaultEpochs)
}

func (s *Store) putWithEpochs(ctx context.Context, data []byte, epochs int) (string, error) {
	tmp, err := os.CreateTemp("", "walrus-upload-*")
	if err != nil {
		return "", fmt.Errorf("blobstore/walrus: create tempfile: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("blobstore/walrus: write tempfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("blobstore/walrus: close tempfile: %w", err)
	}

	cctx, cancel := s.timeoutCtx(ctx)
	defer cancel()

	args := append([]string{"store", "--json", "--epochs", strconv.Itoa(epochs)}, s.configArgs()...)
	args = append(args, tmpName)
	cmd := exec.CommandContext(cctx, walrusBinary, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("blobstore/walrus: store: %w", exitErrorWithStderr(err))
	}

	return parseBlobID(out)
}

// parseBlobID extracts a blob-id from `walrus store --json` output. The
// command emits a JSON array with one element per uploaded file.
func parseBlobID(output []byte) (string, error) {
	var results []storeResult
	if err := json.Unmarshal(output, &results); err != nil || len(results) == 0 {
		var single storeResult
		if err2 := json.Unmarshal(output, &single); err2 != nil {
			return "", fmt.Errorf("blobstore/walrus: parse store output: %w", err)
		}
		results = []storeResult{single}
	}

	r := results[0].BlobStoreResult
	if r.AlreadyCertified != nil && r.AlreadyCertified.BlobID != "" {
		return r.AlreadyCertified.BlobID, nil
	}
	if r.NewlyCreated != nil && r.NewlyCreated.BlobObject.BlobID != "" {
		return r.NewlyCreated.BlobObject.BlobID, nil
	}
	return "", fmt.Errorf("blobstore/walrus: store output did not contain a blob id: %s", output)
}

// Get reads a blob's full content by id. Returns blobstore.ErrNotFound if
// the walrus binary reports the blob as absent or expired.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	cctx, cancel := s.timeoutCtx(ctx)
	defer cancel()

	args := append([]string{"read", id}, s.configArgs()...)
	cmd := exec.CommandContext(cctx, walrusBinary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if isNotFoundOutput(stderr.Bytes()) {
			return nil, blobstore.ErrNotFound
		}
		return nil, fmt.Errorf("blobstore/walrus: read %s: %s", id, stderr.String())
	}
	return stdout.Bytes(), nil
}

func isNotFoundOutput(stderr []byte) bool {
	s := string(stderr)
	return bytes.Contains(stderr, []byte("not found")) ||
		bytes.Contains(stderr, []byte("NotFound")) ||
		bytes.Contains([]byte(s), []byte("expired"))
}

// blobStatus mirrors `walrus blob-status --json`.
type blobStatus struct {
	BlobID   string `json:"blob_id"`
	Status   string `json:"status"`
	EndEpoch *int64 `json:"end_epoch"`
}

// Exists reports whether id currently resolves on the Walrus network.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	status, err := s.status(ctx, id)
	if err != nil {
		return false, err
	}
	return status.Status != "nonexistent", nil
}

func (s *Store) status(ctx context.Context, id string) (*blobStatus, error) {
	cctx, cancel := s.timeoutCtx(ctx)
	defer cancel()

	args := append([]string{"blob-status", "--json", "--blob-id", id}, s.configArgs()...)
	cmd := exec.CommandContext(cctx, walrusBinary, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("blobstore/walrus: blob-status %s: %w", id, exitErrorWithStderr(err))
	}
	var status blobStatus
	if err := json.Unmarshal(out, &status); err != nil {
		return nil, fmt.Errorf("blobstore/walrus: parse blob-status: %w", err)
	}
	return &status, nil
}

// EpochsRemaining reports how many epochs remain before id expires, using
// the current network epoch reported by `walrus info epoch`.
func (s *Store) EpochsRemaining(ctx context.Context, id string) (int64, error) {
	status, err := s.status(ctx, id)
	if err != nil {
		return 0, err
	}
	if status.EndEpoch == nil {
		return 0, fmt.Errorf("blobstore/walrus: blob %s has no end epoch", id)
	}
	current, err := s.currentEpoch(ctx)
	if err != nil {
		return 0, err
	}
	return *status.EndEpoch - current, nil
}

type epochInfo struct {
	CurrentEpoch int64 `json:"currentEpoch"`
}

func (s *Store) currentEpoch(ctx context.Context) (int64, error) {
	cctx, cancel := s.timeoutCtx(ctx)
	defer cancel()

	args := append([]string{"info", "epoch", "--json"}, s.configArgs()...)
	cmd := exec.CommandContext(cctx, walrusBinary, args...)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("blobstore/walrus: info epoch: %w", exitErrorWithStderr(err))
	}
	var info epochInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return 0, fmt.Errorf("blobstore/walrus: parse epoch info: %w", err)
	}
	return info.CurrentEpoch, nil
}

// PutMany uploads each item, order-preserving.
func (s *Store) PutMany(ctx context.Context, items [][]byte) ([]string, error) {
	ids := make([]string, len(items))
	for i, data := range items {
		id, err := s.Put(ctx, data)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// GetMany reads each content-id, order-preserving.
func (s *Store) GetMany(ctx context.Context, ids []string) ([][]byte, error) {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		data, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

func exitErrorWithStderr(err error) error {
	if ee, ok := err.(*exec.ExitError); ok {
		stderr := bytes.TrimSpace(ee.Stderr)
		if len(stderr) > 0 {
			return fmt.Errorf("%w: %s", err, stderr)
		}
	}
	return err
}

var _ blobstore.Store = (*Store)(nil)
