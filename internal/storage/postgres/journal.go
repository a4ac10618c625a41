package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/sim"
)

// ErrBattleNotFound is returned when a journal lookup yields no results.
var ErrBattleNotFound = errors.New("battle not found")

// ErrBattleAlreadySaved is returned when a report's battle ID is already journaled.
var ErrBattleAlreadySaved = errors.New("battle already saved")

// BattleSummary is one row of the battle journal without its events.
type BattleSummary struct {
	ID         string
	Encounter  string
	Outcome    combat.Outcome
	Actions    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// JournalRepository persists finished battle reports.
type JournalRepository struct {
	db *pgxpool.Pool
}

// NewJournalRepository creates a JournalRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewJournalRepository(db *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{db: db}
}

// Save writes the report and its events in a single transaction.
//
// Precondition: r.BattleID must be non-empty.
// Postcondition: Returns nil and the report is fully stored, or nothing is
// stored. A duplicate battle ID yields ErrBattleAlreadySaved.
func (j *JournalRepository) Save(ctx context.Context, r *sim.Report) error {
	err := pgx.BeginFunc(ctx, j.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO battles (id, encounter, outcome, actions, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			r.BattleID, r.Encounter, r.Outcome.String(), r.Actions, r.StartedAt, r.FinishedAt,
		); err != nil {
			return err
		}
		if len(r.Events) == 0 {
			return nil
		}
		rows := make([][]any, len(r.Events))
		for i, ev := range r.Events {
			rows[i] = []any{
				r.BattleID, i + 1,
				ev.ActorID, ev.ActorName, ev.TargetID, ev.TargetName,
				ev.Action.String(), ev.Detail, ev.Magnitude, string(ev.Kind),
				ev.MPSpent, ev.TargetDefeated,
			}
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"battle_events"},
			[]string{
				"battle_id", "seq",
				"actor_id", "actor_name", "target_id", "target_name",
				"action", "detail", "magnitude", "kind",
				"mp_spent", "target_defeated",
			},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrBattleAlreadySaved, r.BattleID)
		}
		return fmt.Errorf("saving battle %s: %w", r.BattleID, err)
	}
	return nil
}

// Get loads a full report, events ordered by sequence.
//
// Postcondition: Returns the report or ErrBattleNotFound.
func (j *JournalRepository) Get(ctx context.Context, id string) (*sim.Report, error) {
	var (
		r       sim.Report
		outcome string
	)
	err := j.db.QueryRow(ctx, `
		SELECT id, encounter, outcome, actions, started_at, finished_at
		FROM battles WHERE id = $1`,
		id,
	).Scan(&r.BattleID, &r.Encounter, &outcome, &r.Actions, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBattleNotFound
		}
		return nil, fmt.Errorf("querying battle: %w", err)
	}
	r.Outcome = combat.ParseOutcome(outcome)

	rows, err := j.db.Query(ctx, `
		SELECT actor_id, actor_name, target_id, target_name,
		       action, detail, magnitude, kind, mp_spent, target_defeated
		FROM battle_events WHERE battle_id = $1 ORDER BY seq ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing battle events: %w", err)
	}
	defer rows.Close()

	r.Events = make([]combat.ActionResult, 0, r.Actions)
	for rows.Next() {
		var (
			ev     combat.ActionResult
			action string
			kind   string
		)
		if err := rows.Scan(
			&ev.ActorID, &ev.ActorName, &ev.TargetID, &ev.TargetName,
			&action, &ev.Detail, &ev.Magnitude, &kind, &ev.MPSpent, &ev.TargetDefeated,
		); err != nil {
			return nil, fmt.Errorf("scanning battle event row: %w", err)
		}
		if ev.Action, err = combat.ParseActionType(action); err != nil {
			return nil, fmt.Errorf("battle %s: %w", id, err)
		}
		ev.Kind = combat.MagnitudeKind(kind)
		r.Events = append(r.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecent returns up to limit battle summaries, newest first.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (j *JournalRepository) ListRecent(ctx context.Context, limit int) ([]BattleSummary, error) {
	rows, err := j.db.Query(ctx, `
		SELECT id, encounter, outcome, actions, started_at, finished_at
		FROM battles ORDER BY finished_at DESC, id ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing battles: %w", err)
	}
	defer rows.Close()

	out := make([]BattleSummary, 0)
	for rows.Next() {
		var (
			s       BattleSummary
			outcome string
		)
		if err := rows.Scan(&s.ID, &s.Encounter, &outcome, &s.Actions, &s.StartedAt, &s.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning battle row: %w", err)
		}
		s.Outcome = combat.ParseOutcome(outcome)
		out = append(out, s)
	}
	return out, rows.Err()
}

func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 is unique_violation.
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
