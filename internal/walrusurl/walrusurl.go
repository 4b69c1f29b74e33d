// Package walrusurl parses the "walrus::<target>" remote URL scheme
// (spec.md §6): <target> selects either the remote ledger backend (a hex
// ledger object id, "0x...") or the local-directory backend (a filesystem
// path), used for testing.
package walrusurl

import (
	"fmt"
	"strings"
)

// Backend identifies which storage backend a URL selects.
type Backend int

const (
	// BackendUnknown is the zero value; never returned by Parse on success.
	BackendUnknown Backend = iota
	// BackendLedger selects the remote ledger + blob-store backend.
	BackendLedger
	// BackendLocal selects the local-directory backend.
	BackendLocal
)

func (b Backend) String() string {
	switch b {
	case BackendLedger:
		return "ledger"
	case BackendLocal:
		return "local"
	default:
		return "unknown"
	}
}

// URL is a parsed "walrus::<target>" remote URL.
type URL struct {
	Backend Backend
	// Target is the ledger object id for BackendLedger, or the filesystem
	// path for BackendLocal.
	Target string
}

const scheme = "walrus::"

// Parse parses raw into a URL. A target beginning with "0x" selects the
// ledger backend; anything else is treated as a filesystem path.
func Parse(raw string) (*URL, error) {
	if !strings.HasPrefix(raw, scheme) {
		return nil, fmt.Errorf("walrusurl: missing %q scheme in %q", scheme, raw)
	}
	target := strings.TrimPrefix(raw, scheme)
	if target == "" {
		return nil, fmt.Errorf("walrusurl: empty target in %q", raw)
	}

	if strings.HasPrefix(target, "0x") {
		return &URL{Backend: BackendLedger, Target: target}, nil
	}
	return &URL{Backend: BackendLocal, Target: target}, nil
}

// String reconstructs the canonical "walrus::<target>" form.
func (u *URL) String() string {
	return scheme + u.Target
}
