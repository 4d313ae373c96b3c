// Package session ties the configuration store, skill catalog and workspace
// provisioner together into the per-agent startup sequence: resolve the
// authorized skill set, provision the workspace, build the immutable
// security profile the policy engine evaluates against.
package session

import (
	"fmt"
	"log/slog"

	"github.com/agentfence/agentfence/internal/security"
	"github.com/agentfence/agentfence/internal/skills"
	"github.com/agentfence/agentfence/internal/store"
	"github.com/agentfence/agentfence/internal/workspace"
)

// Manager starts agent sessions.
type Manager struct {
	store      *store.Store
	catalog    *skills.Catalog
	workspaces *workspace.Manager
	guard      security.GuardConfig
	logger     *slog.Logger
}

// NewManager wires the collaborators together.
func NewManager(st *store.Store, catalog *skills.Catalog, ws *workspace.Manager, guard security.GuardConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      st,
		catalog:    catalog,
		workspaces: ws,
		guard:      guard,
		logger:     logger.With("component", "session"),
	}
}

// SkillNames resolves an agent record to the catalog folder names it may
// use. With allow_all_skills the whole catalog is returned; otherwise each
// skill id is resolved through the store and unresolvable ids are skipped
// with a warning, matching the platform's tolerant behavior.
func (m *Manager) SkillNames(rec store.Agent) ([]string, error) {
	if rec.AllowAllSkills {
		return m.catalog.Names()
	}
	var names []string
	for _, id := range rec.SkillIDs {
		name, err := m.store.SkillName(id)
		if err != nil {
			m.logger.Warn("could not resolve skill id", "agent", rec.ID, "skill_id", id, "error", err)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Start provisions the agent's workspace and builds its security profile.
// A provisioning failure is fatal: no agent may run without a workspace,
// since the workspace is the root of the containment guarantee.
func (m *Manager) Start(agentID string) (*security.Profile, error) {
	rec, err := m.store.GetAgent(agentID)
	if err != nil {
		return nil, fmt.Errorf("start session for %s: %w", agentID, err)
	}
	return m.StartFromRecord(rec)
}

// StartFromRecord is Start for callers that already hold the agent record.
func (m *Manager) StartFromRecord(rec store.Agent) (*security.Profile, error) {
	skillNames, err := m.SkillNames(rec)
	if err != nil {
		return nil, fmt.Errorf("start session for %s: %w", rec.ID, err)
	}

	root, err := m.workspaces.Provision(rec.ID, skillNames)
	if err != nil {
		return nil, fmt.Errorf("start session for %s: %w", rec.ID, err)
	}
	if rec.WorkingDirectory != "" {
		// Explicit working-directory override from configuration. The
		// provisioned workspace still exists for skill visibility.
		canon, err := security.Canonicalize(root, rec.WorkingDirectory)
		if err != nil {
			return nil, fmt.Errorf("start session for %s: working directory: %w", rec.ID, err)
		}
		root = canon
	}

	extra := append([]string{}, rec.AllowedDirectories...)
	extra = append(extra, m.guard.ExtraAllowedDirs...)

	profile, err := security.BuildProfile(rec.ID, root, rec.AllowAllSkills, skillNames, extra)
	if err != nil {
		return nil, fmt.Errorf("start session for %s: %w", rec.ID, err)
	}
	m.logger.Info("session profile built",
		"agent", rec.ID, "workspace", profile.WorkspaceRoot,
		"skills", len(skillNames), "allow_all", rec.AllowAllSkills)
	return profile, nil
}

// Reconcile re-provisions every stored agent's workspace so symlink sets
// converge with current authorization. Used by the periodic reconcile loop
// and after authorization changes mid-session.
func (m *Manager) Reconcile() error {
	agents, err := m.store.ListAgents()
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	for _, rec := range agents {
		skillNames, err := m.SkillNames(rec)
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", rec.ID, err)
		}
		if _, err := m.workspaces.Provision(rec.ID, skillNames); err != nil {
			return fmt.Errorf("reconcile %s: %w", rec.ID, err)
		}
	}
	return nil
}
