// Package workspace provisions the per-agent directory trees that bound an
// agent's filesystem access. Each workspace carries a skills directory whose
// entries are absolute symlinks into the shared skill catalog, restricted to
// the agent's authorized subset. Workspaces live outside the catalog tree so
// an agent cannot discover unauthorized skills through a parent directory.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentfence/agentfence/internal/security"
)

// SkillsDirName is the directory inside each workspace that exposes the
// agent's authorized skills as symlinks.
const SkillsDirName = "skills"

// Manager provisions and reconciles agent workspaces. Provisioning is
// serialized per agent; different agents proceed in parallel.
type Manager struct {
	workspacesRoot string
	skillsRoot     string // the shared skill catalog
	logger         *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a manager rooted at workspacesRoot, linking skills out
// of skillsRoot.
func NewManager(workspacesRoot, skillsRoot string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		workspacesRoot: workspacesRoot,
		skillsRoot:     skillsRoot,
		logger:         logger.With("component", "workspace"),
		locks:          make(map[string]*sync.Mutex),
	}
}

// Path returns the workspace directory for an agent.
func (m *Manager) Path(agentID string) string {
	return filepath.Join(m.workspacesRoot, agentID)
}

// SkillsDir returns the skills-visibility directory for an agent.
func (m *Manager) SkillsDir(agentID string) string {
	return filepath.Join(m.Path(agentID), SkillsDirName)
}

// Exists reports whether an agent's workspace directory exists.
func (m *Manager) Exists(agentID string) bool {
	_, err := os.Stat(m.Path(agentID))
	return err == nil
}

// Provision idempotently creates the workspace for agentID and reconciles
// its skill links to exactly match skillNames: stale links are removed,
// links whose target drifted are replaced, missing links are added. It
// returns the canonical workspace path. Failure here is fatal to starting
// the agent's session; no agent may run without a workspace.
func (m *Manager) Provision(agentID string, skillNames []string) (string, error) {
	if agentID == "" {
		return "", fmt.Errorf("provision workspace: empty agent id")
	}
	lock := m.agentLock(agentID)
	lock.Lock()
	defer lock.Unlock()

	skillsDir := m.SkillsDir(agentID)
	if err := os.MkdirAll(skillsDir, 0o755); err != nil {
		return "", fmt.Errorf("provision workspace for %s: %w", agentID, err)
	}

	if err := m.reconcileLinks(agentID, skillsDir, skillNames); err != nil {
		return "", fmt.Errorf("provision workspace for %s: %w", agentID, err)
	}

	canon, err := security.Canonicalize(string(filepath.Separator), m.Path(agentID))
	if err != nil {
		return "", fmt.Errorf("provision workspace for %s: %w", agentID, err)
	}
	return canon, nil
}

// reconcileLinks diffs the current link set against the desired skill set.
func (m *Manager) reconcileLinks(agentID, skillsDir string, skillNames []string) error {
	desired := make(map[string]string, len(skillNames))
	for _, name := range skillNames {
		source := filepath.Join(m.skillsRoot, name)
		if _, err := os.Stat(source); err != nil {
			// The original platform logs and continues when a catalog entry
			// is missing; the agent simply does not get the link.
			m.logger.Warn("skill directory not found in catalog", "agent", agentID, "skill", name)
			continue
		}
		abs, err := filepath.Abs(source)
		if err != nil {
			return fmt.Errorf("resolve skill %q: %w", name, err)
		}
		desired[name] = abs
	}

	entries, err := os.ReadDir(skillsDir)
	if err != nil {
		return fmt.Errorf("read skills dir: %w", err)
	}

	for _, entry := range entries {
		linkPath := filepath.Join(skillsDir, entry.Name())
		want, keep := desired[entry.Name()]
		if keep {
			target, err := os.Readlink(linkPath)
			if err == nil && target == want {
				delete(desired, entry.Name())
				continue
			}
			// Wrong target or not a symlink at all: replace below.
		}
		if err := os.RemoveAll(linkPath); err != nil {
			return fmt.Errorf("remove stale entry %q: %w", entry.Name(), err)
		}
		if !keep {
			m.logger.Debug("removed revoked skill link", "agent", agentID, "skill", entry.Name())
		}
	}

	linked := 0
	for name, target := range desired {
		if err := os.Symlink(target, filepath.Join(skillsDir, name)); err != nil {
			return fmt.Errorf("link skill %q: %w", name, err)
		}
		linked++
	}
	m.logger.Info("workspace reconciled", "agent", agentID, "linked", linked)
	return nil
}

// Delete removes an agent's workspace entirely.
func (m *Manager) Delete(agentID string) error {
	lock := m.agentLock(agentID)
	lock.Lock()
	defer lock.Unlock()

	path := m.Path(agentID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete workspace for %s: %w", agentID, err)
	}
	m.logger.Info("workspace deleted", "agent", agentID)
	return nil
}

func (m *Manager) agentLock(agentID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[agentID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[agentID] = lock
	}
	return lock
}
