// Package orchestrator implements the push/fetch algorithms (spec.md
// §4.H): the end-to-end workflows that compose the state record, the
// ledger adapter, the blob store, the pack driver, and the local cache
// under the lock protocol. It implements remotehelper.Backend, so the
// protocol engine never touches storage directly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/wbbradley/git-remote-walrus/internal/blobstore"
	"github.com/wbbradley/git-remote-walrus/internal/cache"
	"github.com/wbbradley/git-remote-walrus/internal/ledger"
	"github.com/wbbradley/git-remote-walrus/internal/object"
	"github.com/wbbradley/git-remote-walrus/internal/pack"
	"github.com/wbbradley/git-remote-walrus/internal/remotehelper"
	"github.com/wbbradley/git-remote-walrus/internal/state"
)

// zeroHash is the all-zero object name the protocol uses to mark a ref
// deletion in a push update.
const zeroHash = object.Hash("0000000000000000000000000000000000000000")

// Orchestrator composes the storage tiers under the lock protocol.
type Orchestrator struct {
	Ledger        ledger.Adapter
	Blobs         blobstore.Store
	Cache         *cache.Cache
	RemoteID      string
	LeaseDuration time.Duration

	// Stderr, if non-nil, receives one "warning: blob <id> expires in N
	// epochs" line per blob touched by a push/fetch whose remaining
	// lifetime is at or under ExpirationWarningThreshold. Left nil, no
	// warnings are emitted.
	Stderr                     io.Writer
	ExpirationWarningThreshold int
}

// expirationChecker is satisfied by blob stores that track epoch-bounded
// lifetimes. Only internal/blobstore/walrus implements it; the
// local-directory store has no notion of expiration, so a type assertion
// against it simply fails and warnings are skipped.
type expirationChecker interface {
	EpochsRemaining(ctx context.Context, contentID string) (int64, error)
}

// New constructs an Orchestrator with the default lease duration.
func New(adapter ledger.Adapter, blobs blobstore.Store, c *cache.Cache, remoteID string) *Orchestrator {
	return &Orchestrator{
		Ledger:        adapter,
		Blobs:         blobs,
		Cache:         c,
		RemoteID:      remoteID,
		LeaseDuration: ledger.DefaultLeaseDuration,
	}
}

func (o *Orchestrator) leaseDuration() time.Duration {
	if o.LeaseDuration <= 0 {
		return ledger.DefaultLeaseDuration
	}
	return o.LeaseDuration
}

// ListRefs reports the remote's current refs and a best-effort default
// branch (refs/heads/main, else refs/heads/master, else the
// lexicographically first ref).
func (o *Orchestrator) ListRefs(ctx context.Context, forPush bool) (map[string]string, string, error) {
	desc, err := o.Ledger.ReadDescriptor(ctx, o.RemoteID)
	if err != nil {
		return nil, "", fmt.Errorf("orchestrator: list: %w", err)
	}
	refs := make(map[string]string, len(desc.Refs))
	for name, hash := range desc.Refs {
		refs[name] = hash
	}
	return refs, defaultRef(refs), nil
}

func defaultRef(refs map[string]string) string {
	for _, candidate := range []string{"refs/heads/main", "refs/heads/master"} {
		if _, ok := refs[candidate]; ok {
			return candidate
		}
	}
	if len(refs) == 0 {
		return ""
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}

// Push implements the 9-step push algorithm (spec.md §4.H): acquire the
// lock with backoff, load the current state, upload any objects the
// remote doesn't already have, merge and republish the state, and publish
// the ref changes in a single ledger transaction.
func (o *Orchestrator) Push(ctx context.Context, updates []remotehelper.PushUpdate, packReader io.Reader) ([]remotehelper.PushResult, error) {
	if err := validateUpdates(updates); err != nil {
		return nil, err
	}

	objs, err := pack.Unpack(ctx, packReader)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: unpack push: %w", err)
	}

	if err := o.acquireLockWithBackoff(ctx); err != nil {
		return failAll(updates, err), nil
	}

	desc, err := o.Ledger.ReadDescriptor(ctx, o.RemoteID)
	if err != nil {
		return o.releaseAndFail(ctx, updates, err)
	}

	rec, err := o.loadState(ctx, desc)
	if err != nil {
		return o.releaseAndFail(ctx, updates, err)
	}

	newObjects := make(map[object.Hash]string, len(objs))
	for _, obj := range objs {
		if _, known := rec.Objects[obj.Name]; known {
			continue
		}
		if _, already := newObjects[obj.Name]; already {
			continue
		}
		name, framed, err := object.Encode(obj.Type, obj.Payload)
		if err != nil {
			return o.releaseAndFail(ctx, updates, fmt.Errorf("orchestrator: re-encode %s: %w", obj.Name, err))
		}
		if name != obj.Name {
			return o.releaseAndFail(ctx, updates, fmt.Errorf("orchestrator: pushed object %s re-encodes to %s", obj.Name, name))
		}
		contentID, err := o.Blobs.Put(ctx, framed)
		if err != nil {
			return o.releaseAndFail(ctx, updates, fmt.Errorf("orchestrator: upload %s: %w", obj.Name, err))
		}
		newObjects[obj.Name] = contentID
		_ = o.Cache.PutObject(obj)
		_ = o.Cache.PutBlob(contentID, framed)
	}
	rec.Merge(newObjects)

	data, err := state.Marshal(rec)
	if err != nil {
		return o.releaseAndFail(ctx, updates, fmt.Errorf("orchestrator: marshal state: %w", err))
	}
	newStateBlobID, err := o.Blobs.Put(ctx, data)
	if err != nil {
		return o.releaseAndFail(ctx, updates, fmt.Errorf("orchestrator: upload state: %w", err))
	}

	req := buildPublishRequest(updates, newStateBlobID)
	publishErr := o.Ledger.Publish(ctx, o.RemoteID, req)
	if errors.Is(publishErr, ledger.ErrVersionSkew) {
		if _, err := o.Ledger.ReadDescriptor(ctx, o.RemoteID); err != nil {
			return o.releaseAndFail(ctx, updates, err)
		}
		publishErr = o.Ledger.Publish(ctx, o.RemoteID, req)
	}
	if publishErr != nil {
		return o.releaseAndFail(ctx, updates, fmt.Errorf("orchestrator: publish: %w", publishErr))
	}

	touched := make([]string, 0, len(newObjects)+1)
	for _, contentID := range newObjects {
		touched = append(touched, contentID)
	}
	touched = append(touched, newStateBlobID)
	o.warnExpiringBlobs(ctx, touched)

	results := make([]remotehelper.PushResult, len(updates))
	for i, u := range updates {
		results[i] = remotehelper.PushResult{Ref: u.Dst}
	}
	return results, nil
}

func buildPublishRequest(updates []remotehelper.PushUpdate, newStateBlobID string) ledger.PublishRequest {
	req := ledger.PublishRequest{NewStateBlobID: newStateBlobID, Release: true}
	for _, u := range updates {
		if u.Src == "" || object.Hash(u.Src) == zeroHash {
			req.Deletes = append(req.Deletes, ledger.RefDelete{Name: u.Dst})
			continue
		}
		req.Updates = append(req.Updates, ledger.RefUpdate{Name: u.Dst, NewObject: u.Src})
	}
	return req
}

// acquireLockWithBackoff implements spec.md §4.H step 3: three attempts at
// 1s, 2s, 4s. Only ErrLockHeld is retried; any other error (authorization,
// transport) aborts immediately.
func (o *Orchestrator) acquireLockWithBackoff(ctx context.Context) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		err := o.Ledger.AcquireLock(ctx, o.RemoteID, o.leaseDuration())
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.Is(err, ledger.ErrLockHeld) {
			return err
		}
		if attempt >= len(ledger.DefaultBackoff) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ledger.DefaultBackoff[attempt]):
		}
	}
}

func (o *Orchestrator) releaseAndFail(ctx context.Context, updates []remotehelper.PushUpdate, err error) ([]remotehelper.PushResult, error) {
	_ = o.Ledger.ReleaseLock(ctx, o.RemoteID)
	return failAll(updates, err), nil
}

func failAll(updates []remotehelper.PushUpdate, err error) []remotehelper.PushResult {
	out := make([]remotehelper.PushResult, len(updates))
	for i, u := range updates {
		out[i] = remotehelper.PushResult{Ref: u.Dst, Err: err}
	}
	return out
}

// Fetch implements the 4-step fetch algorithm (spec.md §4.H): read the
// descriptor, load the state record, walk the object graph from each
// wanted name (downloading whatever the cache misses), and hand the
// collected set to the pack driver for emission.
func (o *Orchestrator) Fetch(ctx context.Context, w io.Writer, wants []remotehelper.FetchWant) error {
	desc, err := o.Ledger.ReadDescriptor(ctx, o.RemoteID)
	if err != nil {
		return fmt.Errorf("orchestrator: fetch: read descriptor: %w", err)
	}
	if desc.StateBlobID == "" {
		return pack.Pack(ctx, w, nil, nil)
	}

	rec, err := o.loadState(ctx, desc)
	if err != nil {
		return fmt.Errorf("orchestrator: fetch: load state: %w", err)
	}

	roots := make([]object.Hash, 0, len(wants))
	for _, want := range wants {
		if want.Name != "" {
			roots = append(roots, object.Hash(want.Name))
		}
	}

	objs, err := o.collectReachable(ctx, roots, rec)
	if err != nil {
		return fmt.Errorf("orchestrator: fetch: collect objects: %w", err)
	}

	if err := pack.Pack(ctx, w, objs, nil); err != nil {
		return fmt.Errorf("orchestrator: fetch: pack: %w", err)
	}

	touched := make([]string, 0, len(objs)+1)
	for _, obj := range objs {
		if contentID, ok := rec.Objects[obj.Name]; ok {
			touched = append(touched, contentID)
		}
	}
	touched = append(touched, desc.StateBlobID)
	o.warnExpiringBlobs(ctx, touched)
	return nil
}

// warnExpiringBlobs writes one diagnostic line per content-id in ids whose
// remaining epoch lifetime is at or under ExpirationWarningThreshold. A nil
// Stderr, a non-positive threshold, or a Blobs implementation without epoch
// tracking all make this a no-op.
func (o *Orchestrator) warnExpiringBlobs(ctx context.Context, ids []string) {
	if o.Stderr == nil || o.ExpirationWarningThreshold <= 0 {
		return
	}
	checker, ok := o.Blobs.(expirationChecker)
	if !ok {
		return
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		remaining, err := checker.EpochsRemaining(ctx, id)
		if err != nil {
			continue
		}
		if remaining <= int64(o.ExpirationWarningThreshold) {
			fmt.Fprintf(o.Stderr, "warning: blob %s expires in %d epochs\n", id, remaining)
		}
	}
}

// collectReachable walks the object graph breadth-first from roots,
// resolving each object via the cache (falling back to the blob store
// through rec.Objects) and following its Refs.
func (o *Orchestrator) collectReachable(ctx context.Context, roots []object.Hash, rec *state.Record) ([]object.Object, error) {
	visited := make(map[object.Hash]bool)
	var result []object.Object
	queue := append([]object.Hash{}, roots...)

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if visited[h] {
			continue
		}
		visited[h] = true

		obj, err := o.resolveObject(ctx, h, rec)
		if err != nil {
			return nil, err
		}
		result = append(result, *obj)

		children, err := object.Refs(obj)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if !visited[c] {
				queue = append(queue, c)
			}
		}
	}
	return result, nil
}

// resolveObject returns the object named h, preferring the local cache and
// falling back to the blob store via rec.Objects.
func (o *Orchestrator) resolveObject(ctx context.Context, h object.Hash, rec *state.Record) (*object.Object, error) {
	if obj, ok := o.Cache.GetObject(h); ok {
		return obj, nil
	}
	contentID, ok := rec.Objects[h]
	if !ok {
		return nil, fmt.Errorf("orchestrator: object %s not present in state record", h)
	}
	framed, err := o.fetchBlob(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: download object %s: %w", h, err)
	}
	obj, err := object.Decode(framed)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: decode object %s: %w", h, err)
	}
	if err := o.Cache.ObserveDownload(contentID, obj, framed); err != nil {
		return nil, err
	}
	return obj, nil
}

// loadState downloads and deserializes the state record named by desc's
// state_blob_id, cache-assisted.
func (o *Orchestrator) loadState(ctx context.Context, desc *ledger.Descriptor) (*state.Record, error) {
	if desc.StateBlobID == "" {
		return state.New(), nil
	}
	data, err := o.fetchBlob(ctx, desc.StateBlobID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: download state: %w", err)
	}
	rec, err := state.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: unmarshal state: %w", err)
	}
	return rec, nil
}

// fetchBlob returns raw bytes for contentID, consulting the cache first.
func (o *Orchestrator) fetchBlob(ctx context.Context, contentID string) ([]byte, error) {
	if data, ok := o.Cache.GetBlob(contentID); ok {
		return data, nil
	}
	data, err := o.Blobs.Get(ctx, contentID)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("orchestrator: blob %s: %w", contentID, err)
		}
		return nil, err
	}
	_ = o.Cache.PutBlob(contentID, data)
	return data, nil
}

var _ remotehelper.Backend = (*Orchestrator)(nil)

// errRefName guards against a malformed push line with no destination.
var errRefName = errors.New("orchestrator: push update missing ref name")

func validateUpdates(updates []remotehelper.PushUpdate) error {
	for _, u := range updates {
		if strings.TrimSpace(u.Dst) == "" {
			return errRefName
		}
	}
	return nil
}
