// Package config holds the agentfence application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
)

// Config holds all agentfence configuration.
type Config struct {
	// DataDir is the root for the store and audit journal.
	DataDir string `json:"dataDir"`

	// SkillsDir is the shared skill catalog (the main workspace).
	SkillsDir string `json:"skillsDir"`

	// WorkspacesRoot holds the per-agent workspaces, outside the catalog tree.
	WorkspacesRoot string `json:"workspacesRoot"`

	LogLevel string `json:"logLevel"`

	Audit     AuditConfig     `json:"audit,omitempty"`
	Reconcile ReconcileConfig `json:"reconcile,omitempty"`
}

// AuditConfig controls the deny journal.
type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir,omitempty"` // defaults to <dataDir>/audit
}

// ReconcileConfig controls the periodic workspace reconcile loop.
type ReconcileConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // standard cron expression
}

// DefaultConfig returns the default configuration rooted under the user's
// home directory.
func DefaultConfig() *Config {
	base := defaultBaseDir()
	return &Config{
		DataDir:        filepath.Join(base, "data"),
		SkillsDir:      filepath.Join(base, "skills"),
		WorkspacesRoot: filepath.Join(os.TempDir(), "agent-platform-workspaces"),
		LogLevel:       "info",
		Audit:          AuditConfig{Enabled: true},
		Reconcile:      ReconcileConfig{Enabled: false, Schedule: "@every 1m"},
	}
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".agentfence")
	}
	return filepath.Join(home, ".agentfence")
}

// Load reads configuration from path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks field consistency, including the reconcile schedule.
func (c *Config) Validate() error {
	if c.DataDir == "" || c.SkillsDir == "" || c.WorkspacesRoot == "" {
		return fmt.Errorf("config: dataDir, skillsDir and workspacesRoot are required")
	}
	if c.Reconcile.Enabled {
		if c.Reconcile.Schedule == "" {
			return fmt.Errorf("config: reconcile schedule required when enabled")
		}
		if _, err := cron.ParseStandard(c.Reconcile.Schedule); err != nil {
			return fmt.Errorf("config: invalid reconcile schedule: %w", err)
		}
	}
	return nil
}

// AuditDir returns the effective audit journal directory.
func (c *Config) AuditDir() string {
	if c.Audit.Dir != "" {
		return c.Audit.Dir
	}
	return filepath.Join(c.DataDir, "audit")
}

// StorePath returns the SQLite store location.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "agentfence.db")
}

// EnsureDirs creates the directory tree the daemon needs.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.SkillsDir, c.WorkspacesRoot, c.AuditDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
