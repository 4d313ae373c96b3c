package security

import "strings"

// Shell-argument path extraction is a best-effort heuristic, not a shell
// parser. Quoting, globbing, subshells and variable expansion are not
// modeled; command substitution, `eval`, interpreters (`python -c ...`) and
// encoded payloads can smuggle filesystem access past it. The containment
// guarantee for Bash is therefore probabilistic, in contrast to the
// deterministic guarantee for the direct file tools. Callers must treat it
// as defense in depth over a pinned working directory, not as a boundary.

// readCommands take a path to read as their first non-flag argument.
var readCommands = map[string]bool{
	"cat": true, "head": true, "tail": true, "less": true, "more": true,
}

// fileCommands create, move or remove the paths they are given.
var fileCommands = map[string]bool{
	"cp": true, "mv": true, "rm": true, "mkdir": true, "rmdir": true, "touch": true,
}

// chainOperators separate sub-commands; the token after one starts a new
// command position.
var chainOperators = map[string]bool{
	"&&": true, "||": true, ";": true, "|": true,
}

// PathRef is one absolute path found in a command line, tagged with how it
// was recognized so deny reasons and audit records can say so.
type PathRef struct {
	Path   string
	Source string // e.g. "argument to cat", "redirection target"
}

// ExtractAbsolutePaths scans a shell command line for tokens that look like
// literal absolute filesystem paths. Relative tokens are never returned;
// they resolve against the process working directory, which is pinned to
// the workspace. Results are de-duplicated in order of first appearance.
func ExtractAbsolutePaths(command string) []string {
	var paths []string
	for _, r := range ExtractCommandPaths(command) {
		paths = append(paths, r.Path)
	}
	return paths
}

// ExtractCommandPaths recognizes a fixed family of patterns known to carry a
// literal path: standalone /-prefixed tokens, arguments to the known read
// and file-manipulation commands and to tee, redirection targets (including
// glued forms like ">/tmp/x" and "2>>/tmp/x"), and --flag=/path values.
func ExtractCommandPaths(command string) []PathRef {
	var (
		out          []PathRef
		seen         = make(map[string]bool)
		afterRedir   bool
		commandStart = true
		curCmd       string
	)

	add := func(tok, source string) {
		tok = strings.TrimSuffix(trimQuotes(tok), ";")
		if !strings.HasPrefix(tok, "/") || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, PathRef{Path: tok, Source: source})
	}

	argSource := func() string {
		switch {
		case readCommands[curCmd], fileCommands[curCmd]:
			return "argument to " + curCmd
		case curCmd == "tee":
			return "tee target"
		default:
			return "absolute token"
		}
	}

	for _, tok := range strings.Fields(command) {
		if chainOperators[tok] {
			commandStart = true
			afterRedir = false
			continue
		}

		if afterRedir {
			add(tok, "redirection target")
			afterRedir = false
			continue
		}

		if op, rest := splitRedirection(tok); op {
			if rest == "" {
				afterRedir = true
			} else {
				add(rest, "redirection target")
			}
			continue
		}

		if commandStart {
			commandStart = false
			name := trimQuotes(tok)
			if idx := strings.LastIndex(name, "/"); idx >= 0 {
				// A path-qualified binary is itself a path.
				add(name, "command binary")
				name = name[idx+1:]
			}
			curCmd = name
			continue
		}

		if eq := strings.Index(tok, "=/"); eq > 0 {
			add(tok[eq+1:], "flag value")
			continue
		}
		add(tok, argSource())
	}
	return out
}

// splitRedirection recognizes redirection tokens, optionally with a glued
// target and a leading file descriptor: ">", ">>", "2>", ">/tmp/x",
// "2>>/var/log/x", "</etc/passwd".
func splitRedirection(tok string) (isRedir bool, target string) {
	rest := tok
	for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
		rest = rest[1:]
	}
	switch {
	case strings.HasPrefix(rest, ">>"):
		return true, rest[2:]
	case strings.HasPrefix(rest, ">"):
		return true, rest[1:]
	case strings.HasPrefix(rest, "<"):
		return true, rest[1:]
	}
	return false, ""
}

func trimQuotes(s string) string {
	return strings.Trim(s, `"'`)
}
