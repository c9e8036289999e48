package models

import (
	"fmt"
	"strings"
	"time"
)

type RoleKind string

const (
	RoleKindDirectory RoleKind = "directory"
	RoleKindResource  RoleKind = "resource"
)

type ScopeType string

const (
	ScopeTypeSubscription    ScopeType = "subscription"
	ScopeTypeResourceGroup   ScopeType = "resourceGroup"
	ScopeTypeResource        ScopeType = "resource"
	ScopeTypeManagementGroup ScopeType = "managementGroup"
)

// RoleIdentity is the stable key for a specific role grant. Directory roles
// are keyed by display name; resource roles by scope type, scope and role
// name combined. The same grant must always map to the same key.
type RoleIdentity struct {
	Kind      RoleKind  `json:"kind"`
	RoleName  string    `json:"roleName"`
	Scope     string    `json:"scope,omitempty"`
	ScopeType ScopeType `json:"scopeType,omitempty"`
}

func (r RoleIdentity) Key() string {
	if r.Kind == RoleKindDirectory {
		return r.RoleName
	}
	return fmt.Sprintf("%s|%s|%s", r.ScopeType, strings.ToLower(r.Scope), r.RoleName)
}

func (r RoleIdentity) String() string {
	if r.Kind == RoleKindDirectory {
		return r.RoleName
	}
	return fmt.Sprintf("%s @ %s", r.RoleName, r.Scope)
}

// EligibleRole is a role grant the current principal may self-activate,
// together with the provider handles needed to submit the activation.
type EligibleRole struct {
	Identity         RoleIdentity
	PrincipalID      string
	RoleDefinitionID string
	DirectoryScopeID string
	MaxDurationHours int
}

type OutcomeStatus string

const (
	OutcomeActivated     OutcomeStatus = "activated"
	OutcomeAlreadyActive OutcomeStatus = "alreadyActive"
	OutcomePending       OutcomeStatus = "pending"
	OutcomeFailed        OutcomeStatus = "failed"
)

// Success reports whether the outcome leaves the role active or in flight,
// meaning it should be recorded as a success and not re-attempted this run.
func (s OutcomeStatus) Success() bool {
	switch s {
	case OutcomeActivated, OutcomeAlreadyActive, OutcomePending:
		return true
	}
	return false
}

// ActivationOutcome is the result of one activation attempt. GrantedHours is
// the duration that was actually granted, 0 when the attempt failed.
type ActivationOutcome struct {
	Status       OutcomeStatus
	GrantedHours int
}

// RoleHistoryRecord tracks what happened to a single role grant across runs.
// OptimalDurationHours only ever increases: it records the longest duration
// that has ever succeeded, a cache of the policy-imposed ceiling.
type RoleHistoryRecord struct {
	LastActivatedAt      *time.Time `json:"lastActivatedAt"`
	ExpiresAt            *time.Time `json:"expiresAt"`
	OptimalDurationHours int        `json:"optimalDurationHours"`
	ConsecutiveFailures  int        `json:"consecutiveFailures"`
	TotalActivations     int        `json:"totalActivations"`
	TotalFailures        int        `json:"totalFailures"`
}

type Preferences struct {
	DefaultJustification   string `json:"defaultJustification"`
	DirectoryDurationHours int    `json:"directoryDurationHours"`
	ResourceDurationHours  int    `json:"resourceDurationHours"`
}

// RunState is the process-wide persisted state: loaded at run start, mutated
// in place, written once at run end.
type RunState struct {
	LastRun           *time.Time                                 `json:"lastRun"`
	UserID            string                                     `json:"userId,omitempty"`
	ActivationHistory map[RoleKind]map[string]*RoleHistoryRecord `json:"activationHistory"`
	Preferences       Preferences                                `json:"preferences"`
}

func NewRunState() *RunState {
	return &RunState{
		ActivationHistory: map[RoleKind]map[string]*RoleHistoryRecord{
			RoleKindDirectory: {},
			RoleKindResource:  {},
		},
	}
}
