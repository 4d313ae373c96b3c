package security

import (
	"fmt"
	"path/filepath"
)

// Profile is the immutable per-session security profile for one agent. It is
// built once at session start and never mutated afterwards, so Evaluate can
// run concurrently across sessions without locking.
type Profile struct {
	AgentID          string
	WorkspaceRoot    string   // canonical absolute path
	ExtraAllowedDirs []string // canonical absolute paths, order preserved
	AllowAllSkills   bool
	AuthorizedSkills map[string]struct{}
}

// BuildProfile constructs a Profile from stored agent configuration. The
// workspace root and every extra directory are canonicalized up front; a
// root that cannot be canonicalized is a configuration error, not a
// tool-call-time deny.
func BuildProfile(agentID, workspaceRoot string, allowAllSkills bool, skillNames, extraDirs []string) (*Profile, error) {
	if agentID == "" {
		return nil, fmt.Errorf("build profile: empty agent id")
	}
	if !filepath.IsAbs(workspaceRoot) {
		return nil, fmt.Errorf("build profile: workspace root %q is not absolute", workspaceRoot)
	}

	root, err := Canonicalize(string(filepath.Separator), workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("build profile: workspace root: %w", err)
	}

	extra := make([]string, 0, len(extraDirs))
	for _, dir := range extraDirs {
		canon, err := Canonicalize(root, dir)
		if err != nil {
			return nil, fmt.Errorf("build profile: allowed directory %q: %w", dir, err)
		}
		extra = append(extra, canon)
	}

	skills := make(map[string]struct{}, len(skillNames))
	for _, name := range skillNames {
		if name == "" {
			continue
		}
		skills[name] = struct{}{}
	}

	return &Profile{
		AgentID:          agentID,
		WorkspaceRoot:    root,
		ExtraAllowedDirs: extra,
		AllowAllSkills:   allowAllSkills,
		AuthorizedSkills: skills,
	}, nil
}

// AllowedRoots returns the workspace root plus the extra allowed
// directories, in containment-check order.
func (p *Profile) AllowedRoots() []string {
	roots := make([]string, 0, 1+len(p.ExtraAllowedDirs))
	roots = append(roots, p.WorkspaceRoot)
	roots = append(roots, p.ExtraAllowedDirs...)
	return roots
}

// SkillAuthorized reports whether the named skill may be invoked under this
// profile. Matching is case-sensitive; an empty name is never authorized.
func (p *Profile) SkillAuthorized(name string) bool {
	if name == "" {
		return false
	}
	if p.AllowAllSkills {
		return true
	}
	_, ok := p.AuthorizedSkills[name]
	return ok
}
