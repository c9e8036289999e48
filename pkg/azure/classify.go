package azure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/activator"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/metrics"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
)

// Provider errors are classified here, and only here, into the closed
// activation vocabulary. The signal tables are the minimum set the retry
// ladder needs; unrecognized errors stay terminal.

type signalClass string

const (
	signalAlreadyActive  signalClass = "alreadyActive"
	signalPending        signalClass = "pendingApproval"
	signalDurationPolicy signalClass = "durationPolicy"
	signalTerminal       signalClass = "terminal"
)

// substrings matched case-insensitively against provider error code + message
var (
	durationPolicySignals = []string{
		"expirationrule",
		"expiration rule",
		"exceeds the maximum",
	}
	alreadyActiveSignals = []string{
		"roleassignmentexists",
		"already exists",
		"active assignment",
	}
	pendingSignals = []string{
		"pendingapproval",
		"pending approval",
		"roleassignmentrequestexists",
	}
)

func classify(err error) signalClass {
	code, message := extractSignal(err)
	text := strings.ToLower(code + " " + message)

	// Order matters: a policy validation failure that names the expiration
	// rule is retryable with a shorter duration, not terminal.
	for _, signal := range durationPolicySignals {
		if strings.Contains(text, signal) {
			return signalDurationPolicy
		}
	}
	for _, signal := range alreadyActiveSignals {
		if strings.Contains(text, signal) {
			return signalAlreadyActive
		}
	}
	for _, signal := range pendingSignals {
		if strings.Contains(text, signal) {
			return signalPending
		}
	}
	return signalTerminal
}

func extractSignal(err error) (string, string) {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		// Error() dereferences RawResponse, which the transport may not have
		// populated.
		if respErr.RawResponse == nil {
			return respErr.ErrorCode, ""
		}
		return respErr.ErrorCode, respErr.Error()
	}
	var graphErr *GraphError
	if errors.As(err, &graphErr) {
		return graphErr.Code, graphErr.Message
	}
	return "", err.Error()
}

// outcomeFromError translates a raw activation error into the outcome and
// retry signal the orchestrator understands. requestedHours is what was asked
// for; success-class outcomes report it as granted.
func outcomeFromError(kind models.RoleKind, err error, requestedHours int) (models.ActivationOutcome, error) {
	class := classify(err)
	metrics.RecordProviderError(string(kind), string(class))

	switch class {
	case signalAlreadyActive:
		return models.ActivationOutcome{Status: models.OutcomeAlreadyActive, GrantedHours: requestedHours}, nil
	case signalPending:
		return models.ActivationOutcome{Status: models.OutcomePending, GrantedHours: requestedHours}, nil
	case signalDurationPolicy:
		return models.ActivationOutcome{Status: models.OutcomeFailed},
			fmt.Errorf("%dh activation rejected: %w", requestedHours, activator.ErrDurationPolicy)
	default:
		return models.ActivationOutcome{Status: models.OutcomeFailed}, err
	}
}
