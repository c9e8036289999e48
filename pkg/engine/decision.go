// Package engine decides, per eligible role, whether an activation should be
// attempted on this run. Decisions are pure: they depend only on the clock,
// the configured filter and a history snapshot.
package engine

import (
	"strings"
	"time"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
)

const (
	// A role expiring within this window is re-activated rather than
	// treated as still active, so it cannot lapse mid-task or race a
	// near-simultaneous run.
	ActiveBuffer = 30 * time.Minute

	// Circuit breaker: a role whose policy forbids self-activation
	// entirely should not be retried every run indefinitely.
	FailureThreshold = 3
)

type SkipReason string

const (
	SkipNotConfigured   SkipReason = "notConfigured"
	SkipStillActive     SkipReason = "stillActive"
	SkipTooManyFailures SkipReason = "tooManyFailures"
)

type Decision struct {
	Attempt bool
	Reason  SkipReason
}

func attempt() Decision {
	return Decision{Attempt: true}
}

func skip(reason SkipReason) Decision {
	return Decision{Reason: reason}
}

// Filter is an optional case-insensitive role-name allowlist. A nil or empty
// filter matches every role.
type Filter struct {
	names map[string]struct{}
}

func NewFilter(names []string) *Filter {
	if len(names) == 0 {
		return nil
	}
	f := &Filter{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		f.names[strings.ToLower(name)] = struct{}{}
	}
	return f
}

func (f *Filter) Matches(roleName string) bool {
	if f == nil || len(f.names) == 0 {
		return true
	}
	_, ok := f.names[strings.ToLower(roleName)]
	return ok
}

// Decide classifies one role. First match wins: filter miss, still active
// (with buffer), circuit breaker, then attempt.
func Decide(now time.Time, identity models.RoleIdentity, record *models.RoleHistoryRecord, filter *Filter) Decision {
	if !filter.Matches(identity.RoleName) {
		return skip(SkipNotConfigured)
	}
	if record != nil && record.ExpiresAt != nil && record.ExpiresAt.After(now.Add(ActiveBuffer)) {
		return skip(SkipStillActive)
	}
	if record != nil && record.ConsecutiveFailures >= FailureThreshold {
		return skip(SkipTooManyFailures)
	}
	return attempt()
}
