package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Guard.AuditDenies {
		t.Error("default config should audit denies")
	}
	if len(cfg.Guard.ExtraAllowedDirs) != 0 {
		t.Error("default config should allow no extra dirs")
	}
}

func TestLoadConfig_ParsesGuardSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guard.toml")
	data := []byte("[guard]\nextra_allowed_dirs = [\"/srv/shared\"]\naudit_denies = false\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Guard.AuditDenies {
		t.Error("audit_denies should be false")
	}
	if len(cfg.Guard.ExtraAllowedDirs) != 1 || cfg.Guard.ExtraAllowedDirs[0] != "/srv/shared" {
		t.Errorf("unexpected extra dirs: %v", cfg.Guard.ExtraAllowedDirs)
	}
}

func TestLoadConfig_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[guard\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}
