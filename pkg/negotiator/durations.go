// Package negotiator plans the ordered list of activation durations to
// attempt for a role. Governance policies frequently cap self-activation
// below the tenant default; falling back through standard shorter windows
// recovers from a policy rejection without knowing the cap in advance.
package negotiator

import "github.com/ClausMunch/PIMMeUpScotty/pkg/models"

// standard fallback windows, tried after the base duration
var fallbackHours = []int{4, 2}

// PlanDurations returns the strictly descending sequence of durations to
// attempt, starting at base. Each fallback appears at most once and only when
// smaller than base.
func PlanDurations(base int) []int {
	plan := []int{base}
	for _, hours := range fallbackHours {
		if base > hours {
			plan = append(plan, hours)
		}
	}
	return plan
}

// BaseDuration picks the starting duration for a role: the learned optimal
// from history when one exists (it is known good and typically already at the
// policy ceiling), otherwise the configured fallback.
func BaseDuration(record *models.RoleHistoryRecord, fallback int) int {
	if record != nil && record.OptimalDurationHours > 0 {
		return record.OptimalDurationHours
	}
	return fallback
}
