package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ledgerlocal "github.com/wbbradley/git-remote-walrus/internal/ledger/local"
	"github.com/wbbradley/git-remote-walrus/internal/ledger/sui"
	"github.com/wbbradley/git-remote-walrus/internal/walrusconfig"
	"github.com/wbbradley/git-remote-walrus/internal/walrusurl"
)

func newInitCmd() *cobra.Command {
	var shared bool
	var allow []string

	cmd := &cobra.Command{
		Use:   "init <package-id-or-walrus-url>",
		Short: "Create a remote descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			target := args[0]

			u, err := walrusurl.Parse(target)
			if err != nil {
				// Not a "walrus::" URL: treat the bare argument as a ledger
				// package id, the pre-walrusurl calling convention.
				u = &walrusurl.URL{Backend: walrusurl.BackendLedger, Target: target}
			}

			remoteID, err := initRemote(ctx, u, shared, allow)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), remoteID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&shared, "shared", false, "convert the new descriptor into a shared one with an empty allowlist")
	cmd.Flags().StringArrayVar(&allow, "allow", nil, "principal to add to the descriptor's allowlist (repeatable)")
	return cmd
}

// initRemote creates a remote descriptor for u, dispatching to the
// local-directory backend or the ledger backend the same way backendFor
// does for the remote-helper entry point.
func initRemote(ctx context.Context, u *walrusurl.URL, shared bool, allow []string) (string, error) {
	switch u.Backend {
	case walrusurl.BackendLocal:
		adapter := ledgerlocal.New(u.Target, localPrincipal())
		remoteID, err := adapter.CreateRemote(ctx, defaultLocalRemoteID)
		if err != nil {
			return "", fmt.Errorf("init: %w", err)
		}
		if shared || len(allow) > 0 {
			if err := adapter.Share(ctx, remoteID, allow); err != nil {
				return "", fmt.Errorf("init: share: %w", err)
			}
		}
		return u.String(), nil

	case walrusurl.BackendLedger:
		cfgPath, err := configPath()
		if err != nil {
			return "", err
		}
		cfg, err := walrusconfig.Load(cfgPath)
		if err != nil {
			return "", err
		}

		principal := os.Getenv("SUI_PRINCIPAL")
		client := sui.New(os.Getenv("SUI_RPC_URL"), cfg.SuiWalletPath, u.Target, principal, sui.Options{})
		remoteID, err := client.CreateRemote(ctx, u.Target)
		if err != nil {
			return "", fmt.Errorf("init: %w", err)
		}
		if shared || len(allow) > 0 {
			if err := client.Share(ctx, remoteID, allow); err != nil {
				return "", fmt.Errorf("init: share: %w", err)
			}
		}
		return remoteID, nil

	default:
		return "", fmt.Errorf("init: unrecognized walrus:: target %q", u.Target)
	}
}
