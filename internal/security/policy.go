// Package security implements the per-agent sandboxing policy: path
// canonicalization, workspace containment, skill authorization and the
// tool-call policy engine that ties them together.
//
// The guarded tool set is closed and explicit. Tool names outside the
// dispatch table are allowed through: they belong to capabilities this
// policy layer does not model, and a new tool added to the agent runtime
// bypasses the engine until it is added to the table. That default-allow is
// a known residual risk, kept deliberately so the guarded surface stays
// auditable.
package security

import (
	"fmt"
	"log/slog"
)

// Guarded tool names.
const (
	ToolRead  = "Read"
	ToolWrite = "Write"
	ToolEdit  = "Edit"
	ToolGlob  = "Glob"
	ToolGrep  = "Grep"
	ToolBash  = "Bash"
	ToolSkill = "Skill"
)

// Invocation is one proposed tool call, consumed once by Evaluate.
type Invocation struct {
	Tool   string
	Params map[string]any
}

// Verdict is the outcome of evaluating one invocation. Reason is non-empty
// exactly when the call is denied and names the layer that rejected it.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Recorder receives every deny for security monitoring. Implementations
// must not block the evaluation path on failure.
type Recorder interface {
	RecordDeny(agentID, tool, parameter, reason string)
}

// Engine evaluates proposed tool invocations against a Profile. It holds no
// mutable state; one Engine serves any number of concurrent sessions.
type Engine struct {
	logger *slog.Logger
	audit  Recorder
}

// NewEngine creates an engine. audit may be nil.
func NewEngine(logger *slog.Logger, audit Recorder) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With("component", "policy"), audit: audit}
}

// Evaluate returns the verdict for one tool call. It always returns a
// verdict: every evaluation error, including malformed parameters and
// canonicalization failures, resolves to a deny, never to an allow and
// never to a panic.
func (e *Engine) Evaluate(profile *Profile, inv Invocation) Verdict {
	switch inv.Tool {
	case ToolSkill:
		name, _ := stringParam(inv.Params, "skill")
		if !profile.SkillAuthorized(name) {
			return e.deny(profile, inv.Tool, name, fmt.Sprintf("%s: %q is not in this agent's allow set", ErrSkillUnauthorized, name))
		}
		return allow()

	case ToolRead, ToolWrite, ToolEdit:
		path, ok := stringParam(inv.Params, "file_path", "filePath")
		if !ok {
			return e.deny(profile, inv.Tool, "", "missing file_path parameter")
		}
		return e.checkPath(profile, inv.Tool, path)

	case ToolGlob, ToolGrep:
		raw, present := inv.Params["path"]
		if !present {
			// No path means the tool defaults to the workspace root.
			return allow()
		}
		path, ok := raw.(string)
		if !ok {
			return e.deny(profile, inv.Tool, "",
				fmt.Sprintf("%s: path parameter is not a string", ErrInvalidPath))
		}
		return e.checkPath(profile, inv.Tool, path)

	case ToolBash:
		command, ok := stringParam(inv.Params, "command")
		if !ok {
			return e.deny(profile, inv.Tool, "", "missing command parameter")
		}
		return e.checkCommand(profile, command)

	default:
		return allow()
	}
}

// checkPath canonicalizes one path parameter and requires containment in
// the profile's allowed roots.
func (e *Engine) checkPath(profile *Profile, tool, path string) Verdict {
	canon, err := Canonicalize(profile.WorkspaceRoot, path)
	if err != nil {
		return e.deny(profile, tool, path, err.Error())
	}
	if !isContained(canon, profile.AllowedRoots()) {
		return e.deny(profile, tool, path,
			fmt.Sprintf("%s: %q resolves outside workspace %q", ErrOutsideWorkspace, path, profile.WorkspaceRoot))
	}
	return allow()
}

// checkCommand runs the shell-argument extractor over a Bash command and
// requires every recognized absolute path to be contained. Relative paths
// resolve against the workspace-pinned working directory and pass.
func (e *Engine) checkCommand(profile *Profile, command string) Verdict {
	for _, ref := range ExtractCommandPaths(command) {
		canon, err := Canonicalize(profile.WorkspaceRoot, ref.Path)
		if err != nil {
			return e.deny(profile, ToolBash, ref.Path, err.Error())
		}
		if !isContained(canon, profile.AllowedRoots()) {
			return e.deny(profile, ToolBash, ref.Path,
				fmt.Sprintf("%s: %s %q resolves outside workspace %q", ErrOutsideWorkspace, ref.Source, ref.Path, profile.WorkspaceRoot))
		}
	}
	return allow()
}

func allow() Verdict {
	return Verdict{Allowed: true}
}

func (e *Engine) deny(profile *Profile, tool, parameter, reason string) Verdict {
	e.logger.Warn("tool call denied",
		"agent", profile.AgentID, "tool", tool, "parameter", parameter, "reason", reason)
	if e.audit != nil {
		e.audit.RecordDeny(profile.AgentID, tool, parameter, reason)
	}
	return Verdict{Allowed: false, Reason: reason}
}

// stringParam returns the first present, non-empty string value among the
// given keys.
func stringParam(params map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := params[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}
