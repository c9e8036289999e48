// Package orchestrator drives one full activation pass over the configured
// role kinds. Roles are processed strictly sequentially, directory roles
// first, then resource roles; activations are rate-sensitive external calls
// and sequential processing keeps behavior deterministic.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/activator"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/engine"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/metrics"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/negotiator"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/reporter"
	"github.com/ClausMunch/PIMMeUpScotty/pkg/store"
)

// RoleProvider is one kind's view of the identity-governance API: it lists
// the roles the current principal may self-activate and performs activation
// attempts for them.
type RoleProvider interface {
	activator.Activator
	ListEligible(ctx context.Context) ([]models.EligibleRole, error)
}

// KindConfig carries the per-kind knobs the orchestrator needs: the default
// duration to request when history has no learned optimum, and an optional
// role-name filter.
type KindConfig struct {
	Provider     RoleProvider
	DefaultHours int
	Filter       *engine.Filter
}

type Options struct {
	StatePath   string
	UserID      string
	Preferences models.Preferences
	Directory   *KindConfig
	Resource    *KindConfig
	Reporter    reporter.Reporter
	Logger      *zap.Logger
	Now         func() time.Time
}

type Orchestrator struct {
	opts Options
	log  *zap.Logger
	now  func() time.Time
}

func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{opts: opts, log: opts.Logger, now: now}
}

// Run performs one pass. In list-only mode eligible roles are discovered and
// classified but no activation is ever submitted. A single role's failure
// never aborts the run; only listing failures before a kind's loop are fatal.
func (o *Orchestrator) Run(ctx context.Context, listOnly bool) (reporter.Summary, error) {
	start := time.Now()
	var summary reporter.Summary

	state, err := store.Load(o.opts.StatePath)
	if err != nil {
		// Unreadable state is a first run, not a fatal condition.
		o.log.Warn("could not load state, starting fresh", zap.Error(err))
	}
	history := store.NewHistoryStore(state)
	if o.opts.UserID != "" {
		history.SetUserID(o.opts.UserID)
	}
	if o.opts.Preferences != (models.Preferences{}) {
		history.SetPreferences(o.opts.Preferences)
	}

	kinds := []struct {
		kind models.RoleKind
		cfg  *KindConfig
	}{
		{models.RoleKindDirectory, o.opts.Directory},
		{models.RoleKindResource, o.opts.Resource},
	}

	for _, entry := range kinds {
		if entry.cfg == nil || entry.cfg.Provider == nil {
			continue
		}
		if err := o.runKind(ctx, entry.kind, entry.cfg, history, listOnly, &summary); err != nil {
			return summary, err
		}
	}

	history.MarkRun(o.now())
	if !listOnly {
		if err := store.Save(o.opts.StatePath, history.State()); err != nil {
			// Best effort: the run's results stand, only durability is lost.
			o.log.Warn("failed to persist state", zap.Error(err))
		}
	}

	summary.Elapsed = time.Since(start)
	mode := "run"
	if listOnly {
		mode = "list"
	}
	metrics.RecordRun(mode, summary.Elapsed)
	if o.opts.Reporter != nil {
		o.opts.Reporter.RunCompleted(summary)
	}
	return summary, nil
}

func (o *Orchestrator) runKind(ctx context.Context, kind models.RoleKind, cfg *KindConfig, history *store.HistoryStore, listOnly bool, summary *reporter.Summary) error {
	roles, err := cfg.Provider.ListEligible(ctx)
	if err != nil {
		return fmt.Errorf("failed to list eligible %s roles: %w", kind, err)
	}
	o.log.Debug("listed eligible roles", zap.String("kind", string(kind)), zap.Int("count", len(roles)))

	for _, role := range roles {
		key := role.Identity.Key()
		record, _ := history.Get(kind, key)

		decision := engine.Decide(o.now(), role.Identity, record, cfg.Filter)
		if !decision.Attempt {
			summary.Skipped++
			metrics.RecordRoleSkipped(string(kind), string(decision.Reason))
			if o.opts.Reporter != nil {
				o.opts.Reporter.RoleSkipped(role.Identity, decision.Reason)
			}
			continue
		}

		if listOnly {
			summary.WouldActivate++
			if o.opts.Reporter != nil {
				o.opts.Reporter.RoleWouldActivate(role.Identity, baseHours(cfg, role, record))
			}
			continue
		}

		outcome := o.activate(ctx, kind, cfg, role, record)
		if outcome.Status.Success() {
			history.RecordSuccess(kind, key, outcome.GrantedHours, o.now())
			summary.Activated++
		} else {
			history.RecordFailure(kind, key)
			summary.Failed++
		}
		metrics.RecordActivationOutcome(string(kind), string(outcome.Status), outcome.GrantedHours)
		if o.opts.Reporter != nil {
			o.opts.Reporter.RoleOutcome(role.Identity, outcome)
		}
	}
	return nil
}

// activate drives one role through the negotiated duration ladder until a
// terminal outcome. Only a duration-policy rejection moves to the next rung;
// any other error is terminal for this role.
func (o *Orchestrator) activate(ctx context.Context, kind models.RoleKind, cfg *KindConfig, role models.EligibleRole, record *models.RoleHistoryRecord) models.ActivationOutcome {
	plan := negotiator.PlanDurations(baseHours(cfg, role, record))

	var outcome models.ActivationOutcome
	var attemptErr error
	for i, hours := range plan {
		metrics.RecordActivationAttempt(string(kind), role.Identity.RoleName)
		if o.opts.Reporter != nil {
			o.opts.Reporter.RoleAttempt(role.Identity, hours)
		}

		outcome, attemptErr = cfg.Provider.Activate(ctx, role, hours)
		if attemptErr == nil {
			return outcome
		}
		if errors.Is(attemptErr, activator.ErrDurationPolicy) && i < len(plan)-1 {
			o.log.Info("duration rejected by policy, retrying shorter",
				zap.String("role", role.Identity.String()),
				zap.Int("rejectedHours", hours),
				zap.Int("nextHours", plan[i+1]))
			continue
		}
		break
	}

	o.log.Warn("activation failed",
		zap.String("kind", string(kind)),
		zap.String("role", role.Identity.String()),
		zap.Error(attemptErr))
	return models.ActivationOutcome{Status: models.OutcomeFailed}
}

// baseHours is the first duration the ladder would request for a role: the
// learned optimum when one exists, capped by the role's policy maximum.
func baseHours(cfg *KindConfig, role models.EligibleRole, record *models.RoleHistoryRecord) int {
	base := negotiator.BaseDuration(record, cfg.DefaultHours)
	if role.MaxDurationHours > 0 && base > role.MaxDurationHours {
		base = role.MaxDurationHours
	}
	return base
}
