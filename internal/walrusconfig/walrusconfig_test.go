package walrusconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultEpochs != 5 || cfg.ExpirationWarningThreshold != 10 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `sui_wallet_path = "/home/u/.sui/wallet"
cache_dir = "/home/u/.cache/walrus"
default_epochs = 8
package_id = "0xabc"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SuiWalletPath != "/home/u/.sui/wallet" || cfg.CacheDir != "/home/u/.cache/walrus" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.DefaultEpochs != 8 || cfg.PackageID != "0xabc" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.ExpirationWarningThreshold != 10 {
		t.Errorf("expected default to survive partial file, got %d", cfg.ExpirationWarningThreshold)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`cache_dir = "/from/file"`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("CACHE_DIR", "/from/env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheDir != "/from/env" {
		t.Errorf("got %q, want /from/env", cfg.CacheDir)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := &Config{SuiWalletPath: "/w", CacheDir: "/c", DefaultEpochs: 7, ExpirationWarningThreshold: 3, PackageID: "0xdead"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SuiWalletPath != cfg.SuiWalletPath || got.DefaultEpochs != cfg.DefaultEpochs {
		t.Errorf("round-trip mismatch: got %+v, want %+v", got, cfg)
	}
}
