// Package sui implements the ledger adapter against the Sui JSON-RPC
// endpoint, calling into the published contract's ABI (spec.md treats the
// Sui client library and the contract's source as external collaborators;
// only its interface is in scope here). The HTTP shape — a single Client
// wrapping a retrying *http.Client — mirrors the teacher's remote protocol
// client (pkg/remote/client.go, pkg/remote/retry.go).
package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wbbradley/git-remote-walrus/internal/ledger"
)

// Client is a JSON-RPC client for the on-ledger RemoteState contract.
type Client struct {
	RPCURL      string
	WalletPath  string
	PackageID   string
	Principal   string
	httpClient  *http.Client
	maxAttempts int
}

// Options configures Client construction; zero values take the defaults
// the teacher's NewClientWithOptions uses (60s timeout, 3 attempts).
type Options struct {
	Timeout     time.Duration
	MaxAttempts int
}

// New creates a Client against rpcURL, signing transactions as principal
// using the wallet at walletPath.
func New(rpcURL, walletPath, packageID, principal string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Client{
		RPCURL:      rpcURL,
		WalletPath:  walletPath,
		PackageID:   packageID,
		Principal:   principal,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		maxAttempts: opts.MaxAttempts,
	}
}

// rpcRequest/rpcResponse are the standard JSON-RPC 2.0 envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("ledger/sui: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.RPCURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger/sui: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := retryDo(c.httpClient, req, body, c.maxAttempts)
	if err != nil {
		return fmt.Errorf("ledger/sui: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("ledger/sui: %s: read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger/sui: %s: http %d: %s", method, resp.StatusCode, respBody)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("ledger/sui: %s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return mapContractError(rpcResp.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("ledger/sui: %s: decode result: %w", method, err)
		}
	}
	return nil
}

// mapContractError maps the contract ABI's lock error codes (spec.md §6) to
// the shared ledger sentinel errors.
func mapContractError(message string) error {
	switch {
	case strings.Contains(message, "lock-held") || strings.Contains(message, "code 1"):
		return ledger.ErrLockHeld
	case strings.Contains(message, "no-lock") || strings.Contains(message, "code 2"):
		return ledger.ErrNoLock
	case strings.Contains(message, "not-lock-holder") || strings.Contains(message, "code 3"):
		return ledger.ErrNotLockHolder
	case strings.Contains(message, "lock-expired") || strings.Contains(message, "code 4"):
		return ledger.ErrLockExpired
	case strings.Contains(message, "not-authorized") || strings.Contains(message, "code 5"):
		return ledger.ErrNotAuthorized
	case strings.Contains(message, "not-owner") || strings.Contains(message, "code 6"):
		return ledger.ErrNotOwner
	case strings.Contains(message, "version") || strings.Contains(message, "skew"):
		return ledger.ErrVersionSkew
	default:
		return fmt.Errorf("ledger/sui: contract error: %s", message)
	}
}

func (c *Client) Deploy(ctx context.Context) (string, error) {
	var out struct {
		PackageID string `json:"package_id"`
	}
	err := c.call(ctx, "walrus_deployContract", map[string]string{"sender": c.Principal}, &out)
	return out.PackageID, err
}

func (c *Client) CreateRemote(ctx context.Context, packageID string) (string, error) {
	var out struct {
		RemoteID string `json:"remote_id"`
	}
	err := c.call(ctx, "walrus_createRemote", map[string]string{
		"package_id": packageID,
		"sender":     c.Principal,
	}, &out)
	return out.RemoteID, err
}

func (c *Client) Share(ctx context.Context, remoteID string, allowlist []string) error {
	return c.call(ctx, "walrus_shareRemote", map[string]any{
		"remote_id": remoteID,
		"sender":    c.Principal,
		"allowlist": allowlist,
	}, nil)
}

type descriptorWire struct {
	Owner       string            `json:"owner"`
	Refs        map[string]string `json:"refs"`
	StateBlobID string            `json:"state_blob_id"`
	Lock        *struct {
		Holder      string `json:"holder"`
		ExpiresAtMs int64  `json:"expires_at_ms"`
	} `json:"lock"`
	Allowlist []string `json:"allowlist"`
}

func (c *Client) ReadDescriptor(ctx context.Context, remoteID string) (*ledger.Descriptor, error) {
	var wire descriptorWire
	if err := c.call(ctx, "walrus_readDescriptor", map[string]string{"remote_id": remoteID}, &wire); err != nil {
		return nil, err
	}
	d := &ledger.Descriptor{
		Owner:       wire.Owner,
		Refs:        wire.Refs,
		StateBlobID: wire.StateBlobID,
		Allowlist:   make(map[string]struct{}),
	}
	if d.Refs == nil {
		d.Refs = make(map[string]string)
	}
	if wire.Lock != nil {
		d.Lock = &ledger.Lock{Holder: wire.Lock.Holder, ExpiresAtMs: wire.Lock.ExpiresAtMs}
	}
	for _, p := range wire.Allowlist {
		d.Allowlist[p] = struct{}{}
	}
	return d, nil
}

func (c *Client) AcquireLock(ctx context.Context, remoteID string, timeout time.Duration) error {
	return c.call(ctx, "walrus_acquireLock", map[string]any{
		"remote_id":  remoteID,
		"sender":     c.Principal,
		"timeout_ms": timeout.Milliseconds(),
	}, nil)
}

func (c *Client) Publish(ctx context.Context, remoteID string, req ledger.PublishRequest) error {
	updates := make([]map[string]string, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates = append(updates, map[string]string{"name": u.Name, "new_object": u.NewObject})
	}
	deletes := make([]string, 0, len(req.Deletes))
	for _, d := range req.Deletes {
		deletes = append(deletes, d.Name)
	}
	return c.call(ctx, "walrus_publish", map[string]any{
		"remote_id":         remoteID,
		"sender":            c.Principal,
		"updates":           updates,
		"deletes":           deletes,
		"new_state_blob_id": req.NewStateBlobID,
		"release":           req.Release,
	}, nil)
}

func (c *Client) ReleaseLock(ctx context.Context, remoteID string) error {
	return c.call(ctx, "walrus_releaseLock", map[string]string{
		"remote_id": remoteID,
		"sender":    c.Principal,
	}, nil)
}

var _ ledger.Adapter = (*Client)(nil)
