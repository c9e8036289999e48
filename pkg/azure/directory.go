package azure

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
)

// DirectoryProvider lists and self-activates Entra directory roles through
// the Graph role-management API.
type DirectoryProvider struct {
	session       *Session
	justification string
	now           func() time.Time
}

func NewDirectoryProvider(session *Session, justification string) *DirectoryProvider {
	return &DirectoryProvider{
		session:       session,
		justification: justification,
		now:           time.Now,
	}
}

type roleEligibilitySchedule struct {
	ID               string `json:"id"`
	PrincipalID      string `json:"principalId"`
	RoleDefinitionID string `json:"roleDefinitionId"`
	DirectoryScopeID string `json:"directoryScopeId"`
	RoleDefinition   struct {
		DisplayName string `json:"displayName"`
		TemplateID  string `json:"templateId"`
	} `json:"roleDefinition"`
}

type roleEligibilityScheduleList struct {
	Value []roleEligibilitySchedule `json:"value"`
}

func (p *DirectoryProvider) ListEligible(ctx context.Context) ([]models.EligibleRole, error) {
	query := url.Values{}
	query.Set("$filter", fmt.Sprintf("principalId eq '%s'", p.session.PrincipalID()))
	query.Set("$expand", "roleDefinition")

	var list roleEligibilityScheduleList
	if err := p.session.graph.get(ctx, "/roleManagement/directory/roleEligibilitySchedules", query, &list); err != nil {
		return nil, fmt.Errorf("failed to list directory role eligibilities: %w", err)
	}

	roles := make([]models.EligibleRole, 0, len(list.Value))
	for _, schedule := range list.Value {
		name := schedule.RoleDefinition.DisplayName
		if name == "" {
			name = schedule.RoleDefinitionID
		}
		roles = append(roles, models.EligibleRole{
			Identity: models.RoleIdentity{
				Kind:     models.RoleKindDirectory,
				RoleName: name,
			},
			PrincipalID:      schedule.PrincipalID,
			RoleDefinitionID: schedule.RoleDefinitionID,
			DirectoryScopeID: schedule.DirectoryScopeID,
		})
	}
	return roles, nil
}

type directoryActivationRequest struct {
	Action           string       `json:"action"`
	PrincipalID      string       `json:"principalId"`
	RoleDefinitionID string       `json:"roleDefinitionId"`
	DirectoryScopeID string       `json:"directoryScopeId"`
	Justification    string       `json:"justification"`
	ScheduleInfo     scheduleInfo `json:"scheduleInfo"`
}

type scheduleInfo struct {
	StartDateTime string             `json:"startDateTime"`
	Expiration    scheduleExpiration `json:"expiration"`
}

type scheduleExpiration struct {
	Type     string `json:"type"`
	Duration string `json:"duration"`
}

type directoryActivationResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Activate submits one self-activation request for durationHours. Provider
// errors come back already classified; a duration-policy rejection wraps
// activator.ErrDurationPolicy so the caller can retry shorter.
func (p *DirectoryProvider) Activate(ctx context.Context, role models.EligibleRole, durationHours int) (models.ActivationOutcome, error) {
	scope := role.DirectoryScopeID
	if scope == "" {
		scope = "/"
	}

	request := directoryActivationRequest{
		Action:           "selfActivate",
		PrincipalID:      role.PrincipalID,
		RoleDefinitionID: role.RoleDefinitionID,
		DirectoryScopeID: scope,
		Justification:    p.justification,
		ScheduleInfo: scheduleInfo{
			StartDateTime: p.now().UTC().Format(time.RFC3339),
			Expiration: scheduleExpiration{
				Type:     "afterDuration",
				Duration: fmt.Sprintf("PT%dH", durationHours),
			},
		},
	}

	var response directoryActivationResponse
	err := p.session.graph.post(ctx, "/roleManagement/directory/roleAssignmentScheduleRequests", request, &response)
	if err != nil {
		return outcomeFromError(models.RoleKindDirectory, err, durationHours)
	}

	if isPendingStatus(response.Status) {
		return models.ActivationOutcome{Status: models.OutcomePending, GrantedHours: durationHours}, nil
	}
	return models.ActivationOutcome{Status: models.OutcomeActivated, GrantedHours: durationHours}, nil
}

func isPendingStatus(status string) bool {
	switch status {
	case "PendingApproval", "PendingApprovalProvisioning", "PendingAdminDecision":
		return true
	}
	return false
}
