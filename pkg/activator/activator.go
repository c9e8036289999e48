// Package activator defines the contract for performing a single
// self-activation attempt against the identity-governance API. Adapters must
// translate raw provider errors into this closed vocabulary before the core
// sees them; no string matching belongs outside the adapter boundary.
package activator

import (
	"context"
	"errors"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
)

// ErrDurationPolicy signals that the requested duration violated the role's
// expiration policy. It is the only retryable activation error: the caller
// should retry with the next duration in the negotiated plan.
var ErrDurationPolicy = errors.New("requested duration exceeds the role's expiration policy")

// Activator performs one activation attempt for a role of its kind.
//
// A nil error with a success-class status means the role is now active or in
// flight. An error wrapping ErrDurationPolicy is retryable with a shorter
// duration; any other error is terminal for this role.
type Activator interface {
	Activate(ctx context.Context, role models.EligibleRole, durationHours int) (models.ActivationOutcome, error)
}
