package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "info" || !cfg.Audit.Enabled {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.WorkspacesRoot == "" {
		t.Error("workspaces root must have a default")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentfence.json")

	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.LogLevel = "debug"
	cfg.Reconcile = ReconcileConfig{Enabled: true, Schedule: "@every 30s"}
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.LogLevel != "debug" || !loaded.Reconcile.Enabled {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestValidate_BadCronSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reconcile = ReconcileConfig{Enabled: true, Schedule: "not a schedule"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestValidate_RequiredDirs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillsDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty skillsDir")
	}
}

func TestAuditDir_Default(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AuditDir() != filepath.Join(cfg.DataDir, "audit") {
		t.Errorf("audit dir = %q", cfg.AuditDir())
	}
	cfg.Audit.Dir = "/explicit"
	if cfg.AuditDir() != "/explicit" {
		t.Errorf("explicit audit dir not honored")
	}
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		DataDir:        filepath.Join(dir, "data"),
		SkillsDir:      filepath.Join(dir, "skills"),
		WorkspacesRoot: filepath.Join(dir, "workspaces"),
		LogLevel:       "info",
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{cfg.DataDir, cfg.SkillsDir, cfg.WorkspacesRoot, cfg.AuditDir()} {
		if _, err := os.Stat(d); err != nil {
			t.Errorf("dir %s not created: %v", d, err)
		}
	}
}
