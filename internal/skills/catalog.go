// Package skills scans the shared skill catalog: one directory per skill,
// each carrying a SKILL.md whose YAML frontmatter describes the skill.
package skills

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the parsed SKILL.md frontmatter.
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
}

// Catalog reads skill directories under a single root.
type Catalog struct {
	dir    string
	logger *slog.Logger
}

// NewCatalog creates a catalog over the given directory.
func NewCatalog(dir string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{dir: dir, logger: logger.With("component", "skills")}
}

// Dir returns the catalog root.
func (c *Catalog) Dir() string {
	return c.dir
}

// Names lists the skill folder names available in the catalog: directories
// containing a SKILL.md, hidden entries skipped. A missing catalog directory
// yields an empty list, not an error.
func (c *Catalog) Names() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Info("skill catalog does not exist, skipping", "dir", c.dir)
			return nil, nil
		}
		return nil, fmt.Errorf("read skill catalog: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(c.dir, entry.Name(), "SKILL.md")); err != nil {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Load parses the manifest of one skill by folder name.
func (c *Catalog) Load(name string) (*Manifest, error) {
	return parseManifest(filepath.Join(c.dir, name, "SKILL.md"))
}

// parseManifest extracts the YAML frontmatter between "---" markers.
func parseManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	var inFrontmatter bool
	var yamlLines []string

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			if inFrontmatter {
				break
			}
			inFrontmatter = true
			continue
		}
		if inFrontmatter {
			yamlLines = append(yamlLines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(yamlLines) == 0 {
		return nil, fmt.Errorf("no YAML frontmatter found in %s", path)
	}

	var manifest Manifest
	if err := yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &manifest); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &manifest, nil
}
