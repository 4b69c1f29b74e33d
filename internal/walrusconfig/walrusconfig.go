// Package walrusconfig loads the helper's configuration file (spec.md §6):
// a TOML file naming ledger/blob-store credential locations, the cache
// directory, and blob lifetime defaults. Every option is overridable by an
// uppercase environment variable, the same override idiom the teacher uses
// for its Gothub client settings (GOT_TOKEN, GOT_USERNAME, ...).
package walrusconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the recognized option set from spec.md §6.
type Config struct {
	SuiWalletPath              string `toml:"sui_wallet_path"`
	WalrusConfigPath           string `toml:"walrus_config_path"`
	CacheDir                   string `toml:"cache_dir"`
	DefaultEpochs              int    `toml:"default_epochs"`
	ExpirationWarningThreshold int    `toml:"expiration_warning_threshold"`
	PackageID                  string `toml:"package_id"`
}

// Defaults returns the configuration's built-in defaults, applied before
// the file and environment are read.
func Defaults() Config {
	return Config{
		DefaultEpochs:              5,
		ExpirationWarningThreshold: 10,
	}
}

// Load reads path (if it exists) into a Config seeded with Defaults, then
// applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, fmt.Errorf("walrusconfig: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("walrusconfig: stat %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SUI_WALLET_PATH"); v != "" {
		cfg.SuiWalletPath = v
	}
	if v := os.Getenv("WALRUS_CONFIG_PATH"); v != "" {
		cfg.WalrusConfigPath = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("DEFAULT_EPOCHS"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.DefaultEpochs = n
		}
	}
	if v := os.Getenv("EXPIRATION_WARNING_THRESHOLD"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.ExpirationWarningThreshold = n
		}
	}
	if v := os.Getenv("PACKAGE_ID"); v != "" {
		cfg.PackageID = v
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("walrusconfig: invalid integer %q", s)
	}
	return n, nil
}

// DefaultPath returns the conventional configuration file location:
// $XDG_CONFIG_HOME/git-remote-walrus/config.toml, falling back to
// ~/.config/git-remote-walrus/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "git-remote-walrus", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("walrusconfig: resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "git-remote-walrus", "config.toml"), nil
}

// Save writes cfg to path as TOML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("walrusconfig: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("walrusconfig: create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("walrusconfig: encode: %w", err)
	}
	return nil
}
