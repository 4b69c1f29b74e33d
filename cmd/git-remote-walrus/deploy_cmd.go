package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wbbradley/git-remote-walrus/internal/ledger/sui"
	"github.com/wbbradley/git-remote-walrus/internal/walrusconfig"
)

func newDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Publish the on-ledger contract and print its package id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := walrusconfig.Load(cfgPath)
			if err != nil {
				return err
			}

			client := sui.New(os.Getenv("SUI_RPC_URL"), cfg.SuiWalletPath, "", os.Getenv("SUI_PRINCIPAL"), sui.Options{})
			packageID, err := client.Deploy(context.Background())
			if err != nil {
				return fmt.Errorf("deploy: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), packageID)
			return nil
		},
	}
}
