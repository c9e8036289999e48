package negotiator

import (
	"reflect"
	"testing"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
)

func TestPlanDurations(t *testing.T) {
	tests := []struct {
		base     int
		expected []int
	}{
		{8, []int{8, 4, 2}},
		{12, []int{12, 4, 2}},
		{5, []int{5, 4, 2}},
		{4, []int{4, 2}},
		{3, []int{3, 2}},
		{2, []int{2}},
		{1, []int{1}},
	}

	for _, test := range tests {
		plan := PlanDurations(test.base)
		if !reflect.DeepEqual(plan, test.expected) {
			t.Errorf("PlanDurations(%d) = %v, expected %v", test.base, plan, test.expected)
		}
	}
}

func TestPlanDurationsStrictlyDescending(t *testing.T) {
	for base := 1; base <= 24; base++ {
		plan := PlanDurations(base)
		for i := 1; i < len(plan); i++ {
			if plan[i] >= plan[i-1] {
				t.Errorf("PlanDurations(%d) = %v is not strictly descending", base, plan)
			}
		}
	}
}

func TestBaseDuration(t *testing.T) {
	tests := []struct {
		name     string
		record   *models.RoleHistoryRecord
		fallback int
		expected int
	}{
		{"no history", nil, 8, 8},
		{"history without optimal", &models.RoleHistoryRecord{}, 8, 8},
		{"learned optimal wins", &models.RoleHistoryRecord{OptimalDurationHours: 4}, 8, 4},
		{"learned optimal above default", &models.RoleHistoryRecord{OptimalDurationHours: 12}, 8, 12},
	}

	for _, test := range tests {
		if got := BaseDuration(test.record, test.fallback); got != test.expected {
			t.Errorf("%s: BaseDuration = %d, expected %d", test.name, got, test.expected)
		}
	}
}
