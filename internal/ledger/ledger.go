// Package ledger defines the ledger adapter abstraction (spec.md §4.E): the
// mutable per-remote descriptor holding refs, the state-blob id, the
// time-leased lock, and the allowlist, plus the atomic operations that
// mutate it. Two implementations exist: internal/ledger/local (a directory-
// backed descriptor, used by the local-directory backend and by tests) and
// internal/ledger/sui (a JSON-RPC client against the on-ledger contract).
package ledger

import (
	"context"
	"errors"
	"time"
)

// Error codes from spec.md §6, preserved as sentinel errors so callers can
// branch with errors.Is.
var (
	ErrLockHeld       = errors.New("ledger: lock held by another principal")       // code 1
	ErrNoLock         = errors.New("ledger: no lock held")                         // code 2
	ErrNotLockHolder  = errors.New("ledger: caller is not the lock holder")        // code 3
	ErrLockExpired    = errors.New("ledger: lock has expired")                     // code 4
	ErrNotAuthorized  = errors.New("ledger: caller is not authorized")             // code 5
	ErrNotOwner       = errors.New("ledger: caller is not the descriptor owner")   // code 6
	ErrVersionSkew     = errors.New("ledger: transaction rejected due to object-version skew")
)

// Lock is the optional exclusive lease on a descriptor.
type Lock struct {
	Holder       string
	ExpiresAtMs  int64
}

// Expired reports whether the lock has passed its lease, relative to now
// (the ledger's clock, expressed in unix milliseconds).
func (l *Lock) Expired(nowMs int64) bool {
	return l == nil || l.ExpiresAtMs <= nowMs
}

// Descriptor is the on-ledger per-remote record (spec.md §3).
type Descriptor struct {
	Owner       string
	Refs        map[string]string // ref-name -> object-name
	StateBlobID string            // optional; empty means absent
	Lock        *Lock             // nil means absent
	Allowlist   map[string]struct{}
}

// Authorized reports whether principal may mutate d: the owner always can,
// and so can anyone in the allowlist.
func (d *Descriptor) Authorized(principal string) bool {
	if principal == d.Owner {
		return true
	}
	_, ok := d.Allowlist[principal]
	return ok
}

// RefUpdate is one upsert; RefDelete is one deletion, both applied as part
// of a single Publish transaction.
type RefUpdate struct {
	Name      string
	NewObject string
}

type RefDelete struct {
	Name string
}

// PublishRequest bundles the single atomic transaction spec.md §4.E
// describes: apply ref upserts and deletes, swap the state-blob id, and
// (if Release) clear the lock — all or nothing.
type PublishRequest struct {
	Updates        []RefUpdate
	Deletes        []RefDelete
	NewStateBlobID string
	Release        bool
}

// Adapter is the abstract ledger client.
type Adapter interface {
	Deploy(ctx context.Context) (packageID string, err error)
	CreateRemote(ctx context.Context, packageID string) (remoteID string, err error)
	Share(ctx context.Context, remoteID string, allowlist []string) error
	ReadDescriptor(ctx context.Context, remoteID string) (*Descriptor, error)
	AcquireLock(ctx context.Context, remoteID string, timeout time.Duration) error
	Publish(ctx context.Context, remoteID string, req PublishRequest) error
	ReleaseLock(ctx context.Context, remoteID string) error
}

// DefaultBackoff is the lock-acquisition retry schedule from spec.md §4.H
// step 3: three attempts at 1s, 2s, 4s. Exposed as a variable so tests can
// shrink it without duplicating the schedule.
var DefaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// DefaultLeaseDuration is the lock lease default from spec.md §3.
const DefaultLeaseDuration = 300_000 * time.Millisecond
