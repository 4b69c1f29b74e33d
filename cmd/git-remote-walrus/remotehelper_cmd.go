package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wbbradley/git-remote-walrus/internal/blobstore"
	"github.com/wbbradley/git-remote-walrus/internal/blobstore/local"
	"github.com/wbbradley/git-remote-walrus/internal/blobstore/walrus"
	"github.com/wbbradley/git-remote-walrus/internal/cache"
	"github.com/wbbradley/git-remote-walrus/internal/ledger"
	ledgerlocal "github.com/wbbradley/git-remote-walrus/internal/ledger/local"
	"github.com/wbbradley/git-remote-walrus/internal/ledger/sui"
	"github.com/wbbradley/git-remote-walrus/internal/orchestrator"
	"github.com/wbbradley/git-remote-walrus/internal/remotehelper"
	"github.com/wbbradley/git-remote-walrus/internal/walrusconfig"
	"github.com/wbbradley/git-remote-walrus/internal/walrusurl"
)

// defaultLocalRemoteID names the single descriptor a local-directory
// backend holds: unlike the ledger backend, one walrus:: directory target
// is one remote, so there is no separate remote-id to look up.
const defaultLocalRemoteID = "default"

// runRemoteHelper is invoked with the <remote-name> <url> pair the VCS
// supplies when spawning this binary as a remote helper (spec.md §6).
func runRemoteHelper(stderr io.Writer, remoteName, rawURL string) error {
	u, err := walrusurl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("git-remote-walrus: %w", err)
	}

	cfgPath, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := walrusconfig.Load(cfgPath)
	if err != nil {
		return err
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "git-remote-walrus-cache")
	}
	c := cache.New(cacheDir)

	adapter, store, remoteID, err := backendFor(u, cfg)
	if err != nil {
		return fmt.Errorf("git-remote-walrus: %w", err)
	}

	o := orchestrator.New(adapter, store, c, remoteID)
	o.Stderr = stderr
	o.ExpirationWarningThreshold = cfg.ExpirationWarningThreshold
	engine := remotehelper.NewEngine(os.Stdin, os.Stdout, stderr, o)
	return engine.Run(context.Background())
}

// backendFor selects the blob store and ledger adapter implied by u,
// returning the remote-id operations should address.
func backendFor(u *walrusurl.URL, cfg *walrusconfig.Config) (ledger.Adapter, blobstore.Store, string, error) {
	switch u.Backend {
	case walrusurl.BackendLocal:
		store := local.New(filepath.Join(u.Target, "objects"))
		adapter := ledgerlocal.New(u.Target, localPrincipal())
		return adapter, store, defaultLocalRemoteID, nil
	case walrusurl.BackendLedger:
		rpcURL := os.Getenv("SUI_RPC_URL")
		principal := os.Getenv("SUI_PRINCIPAL")
		adapter := sui.New(rpcURL, cfg.SuiWalletPath, cfg.PackageID, principal, sui.Options{})
		store := walrus.New(cfg.WalrusConfigPath, cfg.DefaultEpochs)
		return adapter, store, u.Target, nil
	default:
		return nil, nil, "", fmt.Errorf("unrecognized walrus:: target %q", u.Target)
	}
}

func localPrincipal() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func configPath() (string, error) {
	if p := os.Getenv("WALRUS_HELPER_CONFIG"); p != "" {
		return p, nil
	}
	return walrusconfig.DefaultPath()
}
