package security

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the guard section of the TOML configuration. ExtraAllowedDirs
// are appended to every agent profile on top of any per-agent directories
// from the store (shared read-only resources, typically).
type Config struct {
	Guard GuardConfig `toml:"guard"`
}

// GuardConfig controls profile-wide containment defaults.
type GuardConfig struct {
	ExtraAllowedDirs []string `toml:"extra_allowed_dirs"`
	AuditDenies      bool     `toml:"audit_denies"`
}

// DefaultConfig returns the default guard configuration: no directories
// beyond the per-agent workspace, denies audited.
func DefaultConfig() Config {
	return Config{
		Guard: GuardConfig{
			ExtraAllowedDirs: nil,
			AuditDenies:      true,
		},
	}
}

// LoadConfig reads a TOML guard configuration, falling back to defaults
// when the file does not exist.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("read guard config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse guard config: %w", err)
	}
	return cfg, nil
}
