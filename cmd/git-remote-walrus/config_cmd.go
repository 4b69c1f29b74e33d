package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/wbbradley/git-remote-walrus/internal/walrusconfig"
)

func newConfigCmd() *cobra.Command {
	var edit bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print or edit the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}

			if edit {
				return editConfig(path)
			}

			cfg, err := walrusconfig.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sui_wallet_path = %q\n", cfg.SuiWalletPath)
			fmt.Fprintf(cmd.OutOrStdout(), "walrus_config_path = %q\n", cfg.WalrusConfigPath)
			fmt.Fprintf(cmd.OutOrStdout(), "cache_dir = %q\n", cfg.CacheDir)
			fmt.Fprintf(cmd.OutOrStdout(), "default_epochs = %d\n", cfg.DefaultEpochs)
			fmt.Fprintf(cmd.OutOrStdout(), "expiration_warning_threshold = %d\n", cfg.ExpirationWarningThreshold)
			fmt.Fprintf(cmd.OutOrStdout(), "package_id = %q\n", cfg.PackageID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&edit, "edit", false, "open the configuration file in $EDITOR")
	return cmd
}

func editConfig(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := walrusconfig.Save(path, &walrusconfig.Config{}); err != nil {
			return err
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	c := exec.Command(editor, path)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	return c.Run()
}
