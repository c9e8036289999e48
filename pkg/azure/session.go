package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Session is the authenticated-session collaborator: a credential valid for
// the duration of the run plus the signed-in principal's identity. Failure to
// establish it is fatal to the whole run.
type Session struct {
	cred        azcore.TokenCredential
	graph       *graphClient
	principalID string
	userName    string
}

type profile struct {
	ID                string `json:"id"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
}

// NewSession builds a credential from the environment (CLI login, managed
// identity, environment variables) and resolves the signed-in principal.
func NewSession(ctx context.Context, tenantID string) (*Session, error) {
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build azure credential: %w", err)
	}
	return newSessionWithCredential(ctx, cred)
}

func newSessionWithCredential(ctx context.Context, cred azcore.TokenCredential) (*Session, error) {
	return newSessionFromGraph(ctx, cred, newGraphClient(cred))
}

func newSessionFromGraph(ctx context.Context, cred azcore.TokenCredential, graph *graphClient) (*Session, error) {
	var me profile
	if err := graph.get(ctx, "/me", nil, &me); err != nil {
		return nil, fmt.Errorf("failed to resolve signed-in principal: %w", err)
	}
	if me.ID == "" {
		return nil, fmt.Errorf("signed-in principal has no object id")
	}

	return &Session{
		cred:        cred,
		graph:       graph,
		principalID: me.ID,
		userName:    me.UserPrincipalName,
	}, nil
}

func (s *Session) PrincipalID() string {
	return s.principalID
}

func (s *Session) UserName() string {
	return s.userName
}

func (s *Session) Credential() azcore.TokenCredential {
	return s.cred
}
