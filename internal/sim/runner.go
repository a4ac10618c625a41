package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
)

// ErrActionLimit is returned when a battle does not conclude within the
// runner's action budget.
var ErrActionLimit = errors.New("action limit reached")

// Option configures a Runner.
type Option func(*Runner)

// WithJournal saves every concluded battle's report to j.
func WithJournal(j Journal) Option { return func(r *Runner) { r.journal = j } }

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithObserver calls fn after every resolved action, e.g. to print it.
func WithObserver(fn func(combat.ActionResult)) Option {
	return func(r *Runner) { r.observe = fn }
}

// WithClock overrides time.Now for report timestamps.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// Runner steps a battle until it concludes.
//
// A party member whose decisions keep being rejected gets maxAttempts tries;
// after that the runner submits a plain attack on the default target.
type Runner struct {
	maxActions  int
	maxAttempts int
	journal     Journal
	logger      *zap.Logger
	observe     func(combat.ActionResult)
	now         func() time.Time
}

// NewRunner creates a Runner.
//
// Precondition: maxActions >= 1 and maxAttempts >= 1.
func NewRunner(maxActions, maxAttempts int, opts ...Option) *Runner {
	r := &Runner{
		maxActions:  maxActions,
		maxAttempts: maxAttempts,
		logger:      zap.NewNop(),
		observe:     func(combat.ActionResult) {},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts b if needed and steps it to conclusion.
//
// Postcondition: on success the report carries the outcome and has been
// saved to the journal, if any. On error the partial report is returned
// alongside it and nothing is saved.
func (r *Runner) Run(ctx context.Context, b *combat.Battle, encounter string) (*Report, error) {
	report := NewReport(b, encounter, r.now())
	if b.State() == combat.StateNotStarted {
		if err := b.Start(); err != nil {
			return report, err
		}
	}
	r.logger.Info("battle running",
		zap.String("battle_id", b.ID()),
		zap.String("encounter", encounter),
	)

	attempts := 0
	for b.State() == combat.StateInProgress {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if b.ActionCount() >= r.maxActions {
			return report, fmt.Errorf("%w: %d actions without a result", ErrActionLimit, r.maxActions)
		}

		res, err := b.Step(ctx)
		if err != nil {
			if !combat.Recoverable(err) || !b.NeedsDecision() {
				return report, err
			}
			attempts++
			r.logger.Warn("decision rejected",
				zap.String("actor", b.CurrentActor().Name),
				zap.Int("attempt", attempts),
				zap.Error(err),
			)
			if attempts < r.maxAttempts {
				continue
			}
			r.logger.Info("falling back to attack", zap.String("actor", b.CurrentActor().Name))
			if res, err = b.Submit(combat.AttackDecision()); err != nil {
				return report, err
			}
		}
		attempts = 0
		if res != nil {
			report.Add(*res)
			r.observe(*res)
		}
	}

	report.Finish(b, r.now())
	r.logger.Info("battle concluded",
		zap.String("battle_id", b.ID()),
		zap.Stringer("outcome", report.Outcome),
		zap.Int("actions", report.Actions),
	)
	if r.journal != nil {
		if err := r.journal.Save(ctx, report); err != nil {
			return report, fmt.Errorf("saving battle %s: %w", b.ID(), err)
		}
	}
	return report, nil
}
