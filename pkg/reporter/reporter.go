// Package reporter receives structured run events for human-facing display
// and audit logging. The core emits events; formatting lives here.
package reporter

import (
	"time"

	"go.uber.org/zap"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/engine"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
)

type Summary struct {
	Activated     int
	Skipped       int
	Failed        int
	WouldActivate int
	Elapsed       time.Duration
}

type Reporter interface {
	RoleSkipped(identity models.RoleIdentity, reason engine.SkipReason)
	RoleAttempt(identity models.RoleIdentity, durationHours int)
	// RoleWouldActivate reports a role that passed classification during a
	// list-only pass, where no activation is submitted.
	RoleWouldActivate(identity models.RoleIdentity, durationHours int)
	RoleOutcome(identity models.RoleIdentity, outcome models.ActivationOutcome)
	RunCompleted(summary Summary)
}

type zapReporter struct {
	log *zap.Logger
}

func NewZapReporter(log *zap.Logger) Reporter {
	return &zapReporter{log: log}
}

func (r *zapReporter) RoleSkipped(identity models.RoleIdentity, reason engine.SkipReason) {
	r.log.Info("role skipped",
		zap.String("kind", string(identity.Kind)),
		zap.String("role", identity.String()),
		zap.String("reason", string(reason)),
	)
}

func (r *zapReporter) RoleAttempt(identity models.RoleIdentity, durationHours int) {
	r.log.Info("requesting activation",
		zap.String("kind", string(identity.Kind)),
		zap.String("role", identity.String()),
		zap.Int("durationHours", durationHours),
	)
}

func (r *zapReporter) RoleWouldActivate(identity models.RoleIdentity, durationHours int) {
	r.log.Info("would activate",
		zap.String("kind", string(identity.Kind)),
		zap.String("role", identity.String()),
		zap.Int("durationHours", durationHours),
	)
}

func (r *zapReporter) RoleOutcome(identity models.RoleIdentity, outcome models.ActivationOutcome) {
	fields := []zap.Field{
		zap.String("kind", string(identity.Kind)),
		zap.String("role", identity.String()),
		zap.String("status", string(outcome.Status)),
	}
	if outcome.GrantedHours > 0 {
		fields = append(fields, zap.Int("grantedHours", outcome.GrantedHours))
	}
	if outcome.Status == models.OutcomeFailed {
		r.log.Warn("activation failed", fields...)
		return
	}
	r.log.Info("activation outcome", fields...)
}

func (r *zapReporter) RunCompleted(summary Summary) {
	fields := []zap.Field{
		zap.Int("activated", summary.Activated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed),
	}
	if summary.WouldActivate > 0 {
		fields = append(fields, zap.Int("wouldActivate", summary.WouldActivate))
	}
	r.log.Info("run completed", fields...)
}

// Recorder captures events for tests.
type Recorder struct {
	Skips          []models.RoleIdentity
	Attempts       []models.RoleIdentity
	WouldActivates []models.RoleIdentity
	Outcomes       []models.ActivationOutcome
	Summary        *Summary
}

func (r *Recorder) RoleSkipped(identity models.RoleIdentity, reason engine.SkipReason) {
	r.Skips = append(r.Skips, identity)
}

func (r *Recorder) RoleAttempt(identity models.RoleIdentity, durationHours int) {
	r.Attempts = append(r.Attempts, identity)
}

func (r *Recorder) RoleWouldActivate(identity models.RoleIdentity, durationHours int) {
	r.WouldActivates = append(r.WouldActivates, identity)
}

func (r *Recorder) RoleOutcome(identity models.RoleIdentity, outcome models.ActivationOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
}

func (r *Recorder) RunCompleted(summary Summary) {
	r.Summary = &summary
}
