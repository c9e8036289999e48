package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

var graphScopes = []string{"https://graph.microsoft.com/.default"}

// graphClient is a minimal Microsoft Graph REST client. The directory-role
// governance surface (roleManagement/directory/...) has no resource-manager
// SDK package, so requests are built by hand over the shared credential.
type graphClient struct {
	cred       azcore.TokenCredential
	httpClient *http.Client
	baseURL    string
}

func newGraphClient(cred azcore.TokenCredential) *graphClient {
	return &graphClient{
		cred:       cred,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    graphBaseURL,
	}
}

// GraphError is the decoded Graph error envelope. Classification of its code
// and message into the activation outcome vocabulary happens in classify.go.
type GraphError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph request failed (%d %s): %s", e.StatusCode, e.Code, e.Message)
}

type graphErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *graphClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: graphScopes})
	if err != nil {
		return fmt.Errorf("failed to acquire graph token: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal graph request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read graph response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope graphErrorEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			return &GraphError{StatusCode: resp.StatusCode, Message: string(data)}
		}
		return &GraphError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode graph response: %w", err)
		}
	}
	return nil
}

func (c *graphClient) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *graphClient) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}
