package services

import (
	"sort"
	"strings"
)

// The errors below carry a message safe to show to the learner. Handlers map
// each type to one HTTP status.

// ValidationError reports per-field problems with a request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid " + strings.Join(names, ", ")
}

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// UnauthorizedError covers bad credentials and expired or revoked tokens.
type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

// RateLimitError is a per-account throttle, such as repeated reset requests.
type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }
