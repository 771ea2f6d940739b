package kerrors

import (
	"strings"
	"time"
)

// ErrorClass buckets an error for retry purposes.
type ErrorClass string

const (
	// ClassTransient marks an error a caller should retry with backoff.
	ClassTransient ErrorClass = "transient"
	// ClassLogic marks an error that retrying won't fix.
	ClassLogic ErrorClass = "logic"
)

var transientHints = []string{
	"timeout",
	"context deadline",
	"rate limit",
	"too many requests",
	"temporar",
	"connection",
	"unavailable",
	"network",
	"overloaded",
	"429",
	"500",
	"502",
	"503",
	"504",
}

// Classify buckets an error into a retry taxonomy by scanning its message
// for a fixed set of transient-failure substrings.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassLogic
	}
	msg := strings.ToLower(err.Error())
	for _, h := range transientHints {
		if strings.Contains(msg, h) {
			return ClassTransient
		}
	}
	return ClassLogic
}

// BackoffParams carries the base/max backoff configuration a caller supplies;
// zero values fall back to the same defaults as the teacher (5s / 5m).
type BackoffParams struct {
	Base time.Duration
	Max  time.Duration
}

// ComputeBackoff returns exponential backoff for the given error class and
// attempt number (1-indexed): base * 2^(attempt-1), clamped to max. Logic
// errors are additionally capped at 30s since retrying them rarely helps and
// a caller generally wants to fail fast and re-plan instead.
func ComputeBackoff(class ErrorClass, attemptNum int, params BackoffParams) time.Duration {
	base := params.Base
	if base <= 0 {
		base = 5 * time.Second
	}
	maxBackoff := params.Max
	if maxBackoff <= 0 {
		maxBackoff = 5 * time.Minute
	}

	shift := attemptNum - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 10 {
		shift = 10
	}
	backoff := base * time.Duration(1<<shift)

	if class == ClassLogic && backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return Classify(err) == ClassTransient
}
