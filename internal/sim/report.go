// Package sim drives battles to completion and reports what happened.
package sim

import (
	"context"
	"time"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
)

// Report is the record of one battle: every resolved action in order plus the
// outcome.
type Report struct {
	BattleID   string
	Encounter  string
	Outcome    combat.Outcome
	Actions    int
	Events     []combat.ActionResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewReport starts a report for battle b.
func NewReport(b *combat.Battle, encounter string, now time.Time) *Report {
	return &Report{BattleID: b.ID(), Encounter: encounter, StartedAt: now}
}

// Add appends a resolved action.
func (r *Report) Add(res combat.ActionResult) {
	r.Events = append(r.Events, res)
}

// Finish copies the battle's outcome and action count into the report.
func (r *Report) Finish(b *combat.Battle, now time.Time) {
	r.Outcome = b.Outcome()
	r.Actions = b.ActionCount()
	r.FinishedAt = now
}

// Journal persists finished battle reports.
type Journal interface {
	Save(ctx context.Context, r *Report) error
}
