package security

import "errors"

// Sentinel errors for the policy evaluation taxonomy. All of them resolve to
// a Deny verdict at the engine boundary; they exist so tests and callers can
// distinguish which layer rejected an input.
var (
	ErrInvalidPath       = errors.New("invalid path")
	ErrOutsideWorkspace  = errors.New("path outside workspace")
	ErrSkillUnauthorized = errors.New("skill not authorized")
)
