package azure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/google/uuid"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
)

// Scope is one resource-management boundary to activate roles at, with an
// optional policy ceiling the caller already knows about.
type Scope struct {
	Scope            string
	ScopeType        models.ScopeType
	MaxDurationHours int
}

// ResourceProvider lists and self-activates Azure resource roles through the
// ARM role-management (PIM) API at the configured scopes.
type ResourceProvider struct {
	session       *Session
	scopes        []Scope
	justification string
	eligibility   *armauthorization.RoleEligibilityScheduleInstancesClient
	requests      *armauthorization.RoleAssignmentScheduleRequestsClient
	definitions   *armauthorization.RoleDefinitionsClient
	now           func() time.Time
}

func NewResourceProvider(session *Session, scopes []Scope, justification string) (*ResourceProvider, error) {
	eligibility, err := armauthorization.NewRoleEligibilityScheduleInstancesClient(session.Credential(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create eligibility client: %w", err)
	}
	requests, err := armauthorization.NewRoleAssignmentScheduleRequestsClient(session.Credential(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule request client: %w", err)
	}
	definitions, err := armauthorization.NewRoleDefinitionsClient(session.Credential(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create role definition client: %w", err)
	}

	return &ResourceProvider{
		session:       session,
		scopes:        scopes,
		justification: justification,
		eligibility:   eligibility,
		requests:      requests,
		definitions:   definitions,
		now:           time.Now,
	}, nil
}

// ListEligible walks the configured scopes and returns every role the current
// principal is eligible to self-activate at them.
func (p *ResourceProvider) ListEligible(ctx context.Context) ([]models.EligibleRole, error) {
	var roles []models.EligibleRole
	for _, scope := range p.scopes {
		scoped, err := p.listScope(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to list eligibilities at %s: %w", scope.Scope, err)
		}
		roles = append(roles, scoped...)
	}
	return roles, nil
}

func (p *ResourceProvider) listScope(ctx context.Context, scope Scope) ([]models.EligibleRole, error) {
	pager := p.eligibility.NewListForScopePager(scope.Scope, &armauthorization.RoleEligibilityScheduleInstancesClientListForScopeOptions{
		Filter: to.Ptr("asTarget()"),
	})

	var roles []models.EligibleRole
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, instance := range page.Value {
			if instance.Properties == nil {
				continue
			}
			props := instance.Properties
			name := roleDisplayName(props)
			roles = append(roles, models.EligibleRole{
				Identity: models.RoleIdentity{
					Kind:      models.RoleKindResource,
					RoleName:  name,
					Scope:     scope.Scope,
					ScopeType: scope.ScopeType,
				},
				PrincipalID:      deref(props.PrincipalID),
				RoleDefinitionID: deref(props.RoleDefinitionID),
				MaxDurationHours: scope.MaxDurationHours,
			})
		}
	}
	return roles, nil
}

func roleDisplayName(props *armauthorization.RoleEligibilityScheduleInstanceProperties) string {
	if props.ExpandedProperties != nil && props.ExpandedProperties.RoleDefinition != nil {
		if name := deref(props.ExpandedProperties.RoleDefinition.DisplayName); name != "" {
			return name
		}
	}
	return deref(props.RoleDefinitionID)
}

// ResolveRoleDefinition finds a role definition ID by display name at a
// scope. Definition identifiers live in different namespaces per scope type
// (management-group scoped vs subscription scoped), so resolution always goes
// through the target scope itself.
func (p *ResourceProvider) ResolveRoleDefinition(ctx context.Context, scope, roleName string) (string, error) {
	pager := p.definitions.NewListPager(scope, &armauthorization.RoleDefinitionsClientListOptions{
		Filter: to.Ptr(fmt.Sprintf("roleName eq '%s'", roleName)),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to resolve role definition %q at %s: %w", roleName, scope, err)
		}
		for _, definition := range page.Value {
			if definition.Properties != nil && strings.EqualFold(deref(definition.Properties.RoleName), roleName) {
				return deref(definition.ID), nil
			}
		}
	}
	return "", fmt.Errorf("role definition %q not found at %s", roleName, scope)
}

// Activate submits one self-activation request for durationHours at the
// role's scope. Duration-policy rejections wrap activator.ErrDurationPolicy.
func (p *ResourceProvider) Activate(ctx context.Context, role models.EligibleRole, durationHours int) (models.ActivationOutcome, error) {
	definitionID := role.RoleDefinitionID
	if definitionID == "" {
		resolved, err := p.ResolveRoleDefinition(ctx, role.Identity.Scope, role.Identity.RoleName)
		if err != nil {
			return models.ActivationOutcome{Status: models.OutcomeFailed}, err
		}
		definitionID = resolved
	}

	principalID := role.PrincipalID
	if principalID == "" {
		principalID = p.session.PrincipalID()
	}

	parameters := armauthorization.RoleAssignmentScheduleRequest{
		Properties: &armauthorization.RoleAssignmentScheduleRequestProperties{
			PrincipalID:      to.Ptr(principalID),
			RoleDefinitionID: to.Ptr(definitionID),
			RequestType:      to.Ptr(armauthorization.RequestTypeSelfActivate),
			Justification:    to.Ptr(p.justification),
			ScheduleInfo: &armauthorization.RoleAssignmentScheduleRequestPropertiesScheduleInfo{
				StartDateTime: to.Ptr(p.now().UTC()),
				Expiration: &armauthorization.RoleAssignmentScheduleRequestPropertiesScheduleInfoExpiration{
					Type:     to.Ptr(armauthorization.TypeAfterDuration),
					Duration: to.Ptr(fmt.Sprintf("PT%dH", durationHours)),
				},
			},
		},
	}

	response, err := p.requests.Create(ctx, role.Identity.Scope, uuid.NewString(), parameters, nil)
	if err != nil {
		return outcomeFromError(models.RoleKindResource, err, durationHours)
	}

	if response.Properties != nil && response.Properties.Status != nil &&
		*response.Properties.Status == armauthorization.StatusPendingApproval {
		return models.ActivationOutcome{Status: models.OutcomePending, GrantedHours: durationHours}, nil
	}
	return models.ActivationOutcome{Status: models.OutcomeActivated, GrantedHours: durationHours}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
