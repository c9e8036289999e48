package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/activator"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/engine"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/reporter"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/store"
)

var testNow = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

// fakeProvider scripts activation outcomes per role and duration.
type fakeProvider struct {
	roles    []models.EligibleRole
	listErr  error
	outcomes map[string]map[int]fakeOutcome
	calls    []fakeCall
}

type fakeOutcome struct {
	outcome models.ActivationOutcome
	err     error
}

type fakeCall struct {
	role  string
	hours int
}

func (f *fakeProvider) ListEligible(ctx context.Context) ([]models.EligibleRole, error) {
	return f.roles, f.listErr
}

func (f *fakeProvider) Activate(ctx context.Context, role models.EligibleRole, durationHours int) (models.ActivationOutcome, error) {
	f.calls = append(f.calls, fakeCall{role: role.Identity.RoleName, hours: durationHours})
	byHours, ok := f.outcomes[role.Identity.RoleName]
	if !ok {
		return models.ActivationOutcome{Status: models.OutcomeActivated, GrantedHours: durationHours}, nil
	}
	result, ok := byHours[durationHours]
	if !ok {
		return models.ActivationOutcome{Status: models.OutcomeActivated, GrantedHours: durationHours}, nil
	}
	return result.outcome, result.err
}

func directoryRole(name string) models.EligibleRole {
	return models.EligibleRole{
		Identity:    models.RoleIdentity{Kind: models.RoleKindDirectory, RoleName: name},
		PrincipalID: "principal",
	}
}

func policyRejection(hours int) fakeOutcome {
	return fakeOutcome{
		outcome: models.ActivationOutcome{Status: models.OutcomeFailed},
		err:     fmt.Errorf("%dh rejected: %w", hours, activator.ErrDurationPolicy),
	}
}

func newTestOrchestrator(t *testing.T, provider RoleProvider, statePath string) (*Orchestrator, *reporter.Recorder) {
	t.Helper()
	recorder := &reporter.Recorder{}
	orch := New(Options{
		StatePath: statePath,
		UserID:    "principal",
		Directory: &KindConfig{Provider: provider, DefaultHours: 8},
		Reporter:  recorder,
		Now:       func() time.Time { return testNow },
	})
	return orch, recorder
}

func TestRunActivatesRoleWithoutHistory(t *testing.T) {
	provider := &fakeProvider{roles: []models.EligibleRole{directoryRole("Owner")}}
	orch, recorder := newTestOrchestrator(t, provider, filepath.Join(t.TempDir(), "state.json"))

	summary, err := orch.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Activated)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, provider.calls, 1)
	assert.Equal(t, 8, provider.calls[0].hours)
	require.Len(t, recorder.Outcomes, 1)
	assert.Equal(t, models.OutcomeActivated, recorder.Outcomes[0].Status)
}

func TestRunDurationLadder(t *testing.T) {
	// Owner: no history, plan [8 4 2]; 8h rejected by the expiration rule,
	// 4h succeeds. The record must learn optimal=4.
	provider := &fakeProvider{
		roles: []models.EligibleRole{directoryRole("Owner")},
		outcomes: map[string]map[int]fakeOutcome{
			"Owner": {8: policyRejection(8)},
		},
	}
	statePath := filepath.Join(t.TempDir(), "state.json")
	orch, _ := newTestOrchestrator(t, provider, statePath)

	summary, err := orch.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Activated)
	assert.Equal(t, 0, summary.Failed)
	require.Equal(t, []fakeCall{{"Owner", 8}, {"Owner", 4}}, provider.calls)

	state, err := store.Load(statePath)
	require.NoError(t, err)
	record := state.ActivationHistory[models.RoleKindDirectory]["Owner"]
	require.NotNil(t, record)
	assert.Equal(t, 4, record.OptimalDurationHours)
	assert.Equal(t, 0, record.ConsecutiveFailures)
	assert.Equal(t, 1, record.TotalActivations)
}

func TestRunLadderExhausted(t *testing.T) {
	provider := &fakeProvider{
		roles: []models.EligibleRole{directoryRole("Owner")},
		outcomes: map[string]map[int]fakeOutcome{
			"Owner": {8: policyRejection(8), 4: policyRejection(4), 2: policyRejection(2)},
		},
	}
	statePath := filepath.Join(t.TempDir(), "state.json")
	orch, _ := newTestOrchestrator(t, provider, statePath)

	summary, err := orch.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	require.Equal(t, []fakeCall{{"Owner", 8}, {"Owner", 4}, {"Owner", 2}}, provider.calls)

	state, err := store.Load(statePath)
	require.NoError(t, err)
	record := state.ActivationHistory[models.RoleKindDirectory]["Owner"]
	require.NotNil(t, record)
	assert.Equal(t, 1, record.ConsecutiveFailures)
	assert.Equal(t, 0, record.OptimalDurationHours)
}

func TestRunTerminalErrorStopsLadder(t *testing.T) {
	provider := &fakeProvider{
		roles: []models.EligibleRole{directoryRole("Owner")},
		outcomes: map[string]map[int]fakeOutcome{
			"Owner": {8: {
				outcome: models.ActivationOutcome{Status: models.OutcomeFailed},
				err:     errors.New("forbidden"),
			}},
		},
	}
	orch, _ := newTestOrchestrator(t, provider, filepath.Join(t.TempDir(), "state.json"))

	summary, err := orch.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, provider.calls, 1, "a terminal error must not fall through the duration ladder")
}

func TestRunSkipsStillActiveRole(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")

	expires := testNow.Add(45 * time.Minute)
	state := models.NewRunState()
	state.ActivationHistory[models.RoleKindDirectory]["Reader"] = &models.RoleHistoryRecord{ExpiresAt: &expires}
	require.NoError(t, store.Save(statePath, state))

	provider := &fakeProvider{roles: []models.EligibleRole{directoryRole("Reader")}}
	orch, recorder := newTestOrchestrator(t, provider, statePath)

	summary, err := orch.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, provider.calls, "still-active role must not be attempted")
	assert.Len(t, recorder.Skips, 1)
}

func TestRunSkipsCircuitBrokenRole(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")

	state := models.NewRunState()
	state.ActivationHistory[models.RoleKindDirectory]["Global Administrator"] = &models.RoleHistoryRecord{
		ConsecutiveFailures: 3,
		TotalFailures:       3,
	}
	require.NoError(t, store.Save(statePath, state))

	provider := &fakeProvider{roles: []models.EligibleRole{directoryRole("Global Administrator")}}
	orch, _ := newTestOrchestrator(t, provider, statePath)

	summary, err := orch.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, provider.calls)
}

func TestRunListOnlyNeverActivates(t *testing.T) {
	provider := &fakeProvider{roles: []models.EligibleRole{
		directoryRole("Owner"),
		directoryRole("Reader"),
		directoryRole("Global Administrator"),
	}}
	orch, recorder := newTestOrchestrator(t, provider, filepath.Join(t.TempDir(), "state.json"))

	summary, err := orch.Run(context.Background(), true)
	require.NoError(t, err)

	assert.Empty(t, provider.calls, "list-only mode must never call the activator")
	assert.Equal(t, 0, summary.Activated)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 3, summary.WouldActivate)
	assert.Len(t, recorder.WouldActivates, 3, "each classified role must surface through the reporter")
	assert.Empty(t, recorder.Attempts)
}

func TestRunListingFailureIsFatal(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("connection refused")}
	orch, _ := newTestOrchestrator(t, provider, filepath.Join(t.TempDir(), "state.json"))

	_, err := orch.Run(context.Background(), false)
	require.Error(t, err)
}

func TestRunSingleRoleFailureDoesNotAbort(t *testing.T) {
	provider := &fakeProvider{
		roles: []models.EligibleRole{directoryRole("Owner"), directoryRole("Reader")},
		outcomes: map[string]map[int]fakeOutcome{
			"Owner": {8: {
				outcome: models.ActivationOutcome{Status: models.OutcomeFailed},
				err:     errors.New("boom"),
			}},
		},
	}
	orch, _ := newTestOrchestrator(t, provider, filepath.Join(t.TempDir(), "state.json"))

	summary, err := orch.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Activated, "the run must continue past a failed role")
}

func TestRunAlreadyActiveAndPendingAreSuccess(t *testing.T) {
	provider := &fakeProvider{
		roles: []models.EligibleRole{directoryRole("Owner"), directoryRole("Reader")},
		outcomes: map[string]map[int]fakeOutcome{
			"Owner":  {8: {outcome: models.ActivationOutcome{Status: models.OutcomeAlreadyActive, GrantedHours: 8}}},
			"Reader": {8: {outcome: models.ActivationOutcome{Status: models.OutcomePending, GrantedHours: 8}}},
		},
	}
	statePath := filepath.Join(t.TempDir(), "state.json")
	orch, _ := newTestOrchestrator(t, provider, statePath)

	summary, err := orch.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Activated)

	state, err := store.Load(statePath)
	require.NoError(t, err)
	for _, name := range []string{"Owner", "Reader"} {
		record := state.ActivationHistory[models.RoleKindDirectory][name]
		require.NotNil(t, record, name)
		assert.Equal(t, 0, record.ConsecutiveFailures, name)
		assert.Equal(t, 1, record.TotalActivations, name)
	}
}

func TestRunUsesLearnedOptimalDuration(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")

	state := models.NewRunState()
	state.ActivationHistory[models.RoleKindDirectory]["Owner"] = &models.RoleHistoryRecord{
		OptimalDurationHours: 4,
		TotalActivations:     1,
	}
	require.NoError(t, store.Save(statePath, state))

	provider := &fakeProvider{roles: []models.EligibleRole{directoryRole("Owner")}}
	orch, _ := newTestOrchestrator(t, provider, statePath)

	_, err := orch.Run(context.Background(), false)
	require.NoError(t, err)

	require.NotEmpty(t, provider.calls)
	assert.Equal(t, 4, provider.calls[0].hours, "base duration must come from learned optimum")
}

func TestRunScopeCeilingCapsBase(t *testing.T) {
	role := directoryRole("Owner")
	role.MaxDurationHours = 2
	provider := &fakeProvider{roles: []models.EligibleRole{role}}
	orch, _ := newTestOrchestrator(t, provider, filepath.Join(t.TempDir(), "state.json"))

	_, err := orch.Run(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, provider.calls, 1)
	assert.Equal(t, 2, provider.calls[0].hours)
}

func TestRunFilterSkipsUnconfiguredRoles(t *testing.T) {
	provider := &fakeProvider{roles: []models.EligibleRole{
		directoryRole("Owner"),
		directoryRole("Reader"),
	}}
	recorder := &reporter.Recorder{}
	orch := New(Options{
		StatePath: filepath.Join(t.TempDir(), "state.json"),
		Directory: &KindConfig{
			Provider:     provider,
			DefaultHours: 8,
			Filter:       engine.NewFilter([]string{"Owner"}),
		},
		Reporter: recorder,
		Now:      func() time.Time { return testNow },
	})

	summary, err := orch.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Activated)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, provider.calls, 1)
	assert.Equal(t, "Owner", provider.calls[0].role)
}

func TestRunStateSaveFailureIsNotFatal(t *testing.T) {
	provider := &fakeProvider{roles: []models.EligibleRole{directoryRole("Owner")}}
	// A state path whose parent is a file, so Save cannot succeed.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, store.Save(blocker, models.NewRunState()))
	orch, _ := newTestOrchestrator(t, provider, filepath.Join(blocker, "state.json"))

	summary, err := orch.Run(context.Background(), false)
	require.NoError(t, err, "persistence failure only loses durability, never the run")
	assert.Equal(t, 1, summary.Activated)
}
