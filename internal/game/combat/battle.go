package combat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/turnbattle/internal/game/dice"
)

var (
	// ErrBattleNotStarted is returned by Step before Start has been called.
	ErrBattleNotStarted = errors.New("battle not started")
	// ErrBattleAlreadyStarted is returned by a second call to Start.
	ErrBattleAlreadyStarted = errors.New("battle already started")
	// ErrNoEnemyTarget is returned by Step when the TargetSelector yields no
	// target while the party still stands. The turn does not advance.
	ErrNoEnemyTarget = errors.New("target selector returned no target")
	// ErrBattleConcluded is returned by any action attempted after the battle ended.
	ErrBattleConcluded = errors.New("battle concluded")
	// ErrAwaitingDecision is returned by Step when a party member must act and
	// the battle has no DecisionSource; use Submit instead.
	ErrAwaitingDecision = errors.New("awaiting player decision")
	// ErrNotPlayerTurn is returned by Submit when the current actor is an enemy.
	ErrNotPlayerTurn = errors.New("not a player turn")
)

// State is the lifecycle phase of a Battle.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateConcluded
)

// String returns a human-readable state label.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateConcluded:
		return "concluded"
	default:
		return "unknown"
	}
}

// Outcome is the reason a battle concluded.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomePartyDefeated
	OutcomeEnemiesDefeated
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomePartyDefeated:
		return "party_defeated"
	case OutcomeEnemiesDefeated:
		return "enemies_defeated"
	default:
		return "none"
	}
}

// ParseOutcome is the inverse of Outcome.String. Unknown labels map to OutcomeNone.
func ParseOutcome(s string) Outcome {
	switch s {
	case "party_defeated":
		return OutcomePartyDefeated
	case "enemies_defeated":
		return OutcomeEnemiesDefeated
	default:
		return OutcomeNone
	}
}

// DecisionRequest describes the situation a player-controlled actor decides in.
// Allies and Foes are the live rosters, indexed the way Decision.Target expects.
type DecisionRequest struct {
	Actor  *Combatant
	Allies []*Combatant
	Foes   []*Combatant
}

// DecisionSource supplies completed decisions for party members. Decide is a
// synchronous call; it must not mutate the combatants it is shown.
type DecisionSource interface {
	Decide(ctx context.Context, req DecisionRequest) (Decision, error)
}

// DecisionFunc adapts a plain function into a DecisionSource.
type DecisionFunc func(ctx context.Context, req DecisionRequest) (Decision, error)

// Decide calls f.
func (f DecisionFunc) Decide(ctx context.Context, req DecisionRequest) (Decision, error) {
	return f(ctx, req)
}

// Option configures a Battle.
type Option func(*Battle)

// WithID overrides the generated battle ID.
func WithID(id string) Option { return func(b *Battle) { b.id = id } }

// WithLogger attaches a logger; battles log at debug level only.
func WithLogger(l *zap.Logger) Option { return func(b *Battle) { b.logger = l } }

// WithSelector replaces the default uniform-random enemy targeting.
func WithSelector(s TargetSelector) Option { return func(b *Battle) { b.selector = s } }

// Battle holds the live state of one encounter between a party and an enemy group.
//
// A Battle is not safe for concurrent use; Engine serializes access when battles
// are shared across goroutines.
type Battle struct {
	id       string
	party    []*Combatant
	enemies  []*Combatant
	order    []*Combatant
	index    int
	state    State
	outcome  Outcome
	actions  int
	players  DecisionSource
	selector TargetSelector
	logger   *zap.Logger
}

// NewBattle creates a battle between party and enemies. players supplies
// decisions for party members; it may be nil when decisions arrive via Submit.
//
// Precondition: every combatant is non-nil and fully populated.
// Postcondition: the battle is in StateNotStarted.
func NewBattle(party, enemies []*Combatant, players DecisionSource, opts ...Option) *Battle {
	b := &Battle{
		id:       uuid.New().String(),
		party:    party,
		enemies:  enemies,
		players:  players,
		selector: NewRandomSelector(dice.NewCryptoSource()),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID returns the battle identifier.
func (b *Battle) ID() string { return b.id }

// State returns the current lifecycle phase.
func (b *Battle) State() State { return b.state }

// Outcome returns why the battle concluded, or OutcomeNone while it runs.
func (b *Battle) Outcome() Outcome { return b.outcome }

// Party returns the party roster.
func (b *Battle) Party() []*Combatant { return b.party }

// Enemies returns the enemy roster.
func (b *Battle) Enemies() []*Combatant { return b.enemies }

// ActionCount returns the number of actions resolved so far.
func (b *Battle) ActionCount() int { return b.actions }

// Order returns a copy of the live turn order.
func (b *Battle) Order() []*Combatant {
	cp := make([]*Combatant, len(b.order))
	copy(cp, b.order)
	return cp
}

// CurrentActor returns the combatant whose turn it is, or nil when the battle
// is not in progress.
func (b *Battle) CurrentActor() *Combatant {
	if b.state != StateInProgress || len(b.order) == 0 {
		return nil
	}
	return b.order[b.index]
}

// NeedsDecision reports whether the current actor is a living party member.
func (b *Battle) NeedsDecision() bool {
	actor := b.CurrentActor()
	return actor != nil && actor.IsPlayer() && !actor.IsDefeated()
}

// Start computes the initial turn order and moves the battle to StateInProgress.
// A battle whose rosters are already wiped concludes immediately.
func (b *Battle) Start() error {
	if b.state != StateNotStarted {
		return ErrBattleAlreadyStarted
	}
	all := make([]*Combatant, 0, len(b.party)+len(b.enemies))
	all = append(all, b.party...)
	all = append(all, b.enemies...)
	b.order = InitializeOrder(all)
	b.index = 0
	b.state = StateInProgress

	if b.logger.Core().Enabled(zap.DebugLevel) {
		names := make([]string, len(b.order))
		for i, c := range b.order {
			names[i] = c.Name
		}
		b.logger.Debug("battle started",
			zap.String("battle_id", b.id),
			zap.Strings("turn_order", names),
		)
	}
	b.checkTerminal()
	return nil
}

// Step resolves the current actor's turn.
//
// Defeated actors are skipped silently: Step returns (nil, nil) and the turn
// still advances. Party members decide through the battle's DecisionSource;
// enemies attack a target chosen by the TargetSelector.
//
// Postcondition: a recoverable decision error (see Recoverable) leaves every
// combatant and the turn pointer unchanged, so the same actor acts on the
// next Step.
func (b *Battle) Step(ctx context.Context) (*ActionResult, error) {
	if err := b.requireInProgress(); err != nil {
		return nil, err
	}
	actor := b.order[b.index]
	if actor.IsDefeated() {
		b.advance()
		return nil, nil
	}

	if actor.IsPlayer() {
		if b.players == nil {
			return nil, ErrAwaitingDecision
		}
		allies, foes := b.sides(actor)
		dec, err := b.players.Decide(ctx, DecisionRequest{Actor: actor, Allies: allies, Foes: foes})
		if err != nil {
			return nil, fmt.Errorf("deciding for %s: %w", actor.Name, err)
		}
		return b.act(actor, dec)
	}

	target := b.selector.SelectForEnemy(b.party)
	if target == nil {
		b.checkTerminal()
		if b.state == StateConcluded {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNoEnemyTarget, actor.Name)
	}
	r, err := Resolve(actor, ActionAttack, 0, target)
	if err != nil {
		return nil, err
	}
	b.record(r)
	b.finishTurn()
	return &r, nil
}

// Submit resolves dec for the current actor, which must be a party member.
// It is the entry point for callers that collect decisions asynchronously.
func (b *Battle) Submit(dec Decision) (*ActionResult, error) {
	if err := b.requireInProgress(); err != nil {
		return nil, err
	}
	actor := b.order[b.index]
	if !actor.IsPlayer() || actor.IsDefeated() {
		return nil, fmt.Errorf("%w: current actor is %s", ErrNotPlayerTurn, actor.Name)
	}
	return b.act(actor, dec)
}

func (b *Battle) act(actor *Combatant, dec Decision) (*ActionResult, error) {
	r, err := b.resolveDecision(actor, dec)
	if err != nil {
		b.logger.Debug("decision rejected",
			zap.String("battle_id", b.id),
			zap.String("actor", actor.Name),
			zap.Error(err),
		)
		return nil, err
	}
	b.record(r)
	b.finishTurn()
	return &r, nil
}

// resolveDecision picks the target a decision refers to and resolves it.
// Heal skills and items target the actor's own side and default to the actor;
// everything else targets the opposing side and defaults to its first living member.
func (b *Battle) resolveDecision(actor *Combatant, dec Decision) (ActionResult, error) {
	allies, foes := b.sides(actor)

	supportive := false
	switch dec.Action {
	case ActionAttack:
	case ActionSkill:
		if dec.Detail < 0 || dec.Detail >= len(actor.Skills) {
			return ActionResult{}, fmt.Errorf("%w: %s has no skill %d", ErrInvalidSkillSlot, actor.Name, dec.Detail)
		}
		supportive = actor.Skills[dec.Detail].Supportive()
	case ActionItem:
		supportive = true
	default:
		return ActionResult{}, fmt.Errorf("%w: %s", ErrInvalidAction, dec.Action)
	}

	candidates := foes
	if supportive {
		candidates = allies
	}

	var target *Combatant
	if dec.Target == nil {
		if supportive {
			target = actor
		} else {
			target = FirstLiving(foes)
		}
		if target == nil {
			return ActionResult{}, fmt.Errorf("%w: no living target", ErrInvalidTarget)
		}
	} else {
		var err error
		target, err = SelectForPlayer(candidates, *dec.Target)
		if err != nil {
			return ActionResult{}, err
		}
	}
	return Resolve(actor, dec.Action, dec.Detail, target)
}

func (b *Battle) finishTurn() {
	b.actions++
	b.advance()
}

// advance moves the turn pointer, drops defeated combatants from the order,
// and checks for a terminal condition.
func (b *Battle) advance() {
	next, err := Advance(b.order, b.index)
	if err != nil {
		b.conclude()
		return
	}

	// The next actor is the first survivor at or after next in the old order.
	var nextActor *Combatant
	for i := 0; i < len(b.order); i++ {
		c := b.order[(next+i)%len(b.order)]
		if !c.IsDefeated() {
			nextActor = c
			break
		}
	}

	pruned := PruneDefeated(b.order)
	if len(pruned) != len(b.order) {
		b.logger.Debug("pruned turn order",
			zap.String("battle_id", b.id),
			zap.Int("before", len(b.order)),
			zap.Int("after", len(pruned)),
		)
	}
	b.order = pruned
	b.index = 0
	for i, c := range pruned {
		if c == nextActor {
			b.index = i
			break
		}
	}

	b.checkTerminal()
}

// checkTerminal concludes the battle when either roster is wiped out or no one
// is left to act. A wiped party takes precedence over wiped enemies.
func (b *Battle) checkTerminal() {
	if AllDefeated(b.party) || AllDefeated(b.enemies) || len(b.order) == 0 {
		b.conclude()
	}
}

func (b *Battle) conclude() {
	switch {
	case AllDefeated(b.party):
		b.outcome = OutcomePartyDefeated
	case AllDefeated(b.enemies):
		b.outcome = OutcomeEnemiesDefeated
	default:
		// Only reachable through an empty order with both sides alive, which
		// InitializeOrder and PruneDefeated cannot produce.
		b.outcome = OutcomePartyDefeated
	}
	b.state = StateConcluded
	b.logger.Debug("battle concluded",
		zap.String("battle_id", b.id),
		zap.Stringer("outcome", b.outcome),
		zap.Int("actions", b.actions),
	)
}

func (b *Battle) record(r ActionResult) {
	b.logger.Debug("action resolved",
		zap.String("battle_id", b.id),
		zap.String("actor", r.ActorName),
		zap.Stringer("action", r.Action),
		zap.String("detail", r.Detail),
		zap.String("target", r.TargetName),
		zap.Int("magnitude", r.Magnitude),
		zap.String("kind", string(r.Kind)),
		zap.Bool("target_defeated", r.TargetDefeated),
	)
}

func (b *Battle) requireInProgress() error {
	switch b.state {
	case StateNotStarted:
		return ErrBattleNotStarted
	case StateConcluded:
		return ErrBattleConcluded
	}
	if len(b.order) == 0 {
		b.conclude()
		return ErrBattleConcluded
	}
	return nil
}

// sides returns (allies, foes) from actor's point of view.
func (b *Battle) sides(actor *Combatant) ([]*Combatant, []*Combatant) {
	if actor.IsPlayer() {
		return b.party, b.enemies
	}
	return b.enemies, b.party
}
