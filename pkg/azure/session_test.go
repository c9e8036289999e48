package azure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewSessionResolvesPrincipal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":                "11111111-2222-3333-4444-555555555555",
			"userPrincipalName": "scotty@example.com",
		})
	}))
	defer server.Close()

	graph := &graphClient{cred: staticCredential{}, httpClient: server.Client(), baseURL: server.URL}
	session, err := newSessionFromGraph(context.Background(), staticCredential{}, graph)
	if err != nil {
		t.Fatalf("newSessionFromGraph failed: %v", err)
	}

	if session.PrincipalID() != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("unexpected principal id %q", session.PrincipalID())
	}
	if session.UserName() != "scotty@example.com" {
		t.Errorf("unexpected user name %q", session.UserName())
	}
}

func TestNewSessionAuthFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"code": "InvalidAuthenticationToken", "message": "Access token is empty."},
		})
	}))
	defer server.Close()

	graph := &graphClient{cred: staticCredential{}, httpClient: server.Client(), baseURL: server.URL}
	if _, err := newSessionFromGraph(context.Background(), staticCredential{}, graph); err == nil {
		t.Fatal("expected an error when the principal cannot be resolved")
	}
}
