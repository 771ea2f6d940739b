// Package kerrors defines the sentinel error values shared across kotadb's
// storage, query, tool, and ADW layers. Callers wrap these with fmt.Errorf's
// %w verb so errors.Is checks keep working through package boundaries.
package kerrors

import "errors"

var (
	// ErrInvalidParams is returned when a tool call or API request has
	// missing or malformed parameters.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrNotFound is returned when a lookup (file, symbol, decision,
	// checkpoint, worktree) finds no matching row.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate a uniqueness
	// constraint or an expected precondition (e.g. duplicate tool name,
	// worktree already exists).
	ErrConflict = errors.New("conflict")

	// ErrTransient marks an error a caller should retry with backoff
	// (network blips, SQLITE_BUSY, rate limiting).
	ErrTransient = errors.New("transient error")

	// ErrFatal marks an error that must not be retried (auth failure,
	// malformed schema, disk full).
	ErrFatal = errors.New("fatal error")

	// ErrPhaseFailure is returned when an ADW phase (analysis, plan,
	// build, improve, pr) exits non-zero or produces no usable output.
	ErrPhaseFailure = errors.New("phase failure")
)
