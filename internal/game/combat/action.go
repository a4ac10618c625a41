package combat

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTarget is returned when a decision names a target that does not
	// exist or is already defeated.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInsufficientResource is returned when the actor lacks the MP for a skill.
	ErrInsufficientResource = errors.New("insufficient resource")
	// ErrInvalidItemSlot is returned when an inventory index does not exist or
	// the item there cannot be used in combat.
	ErrInvalidItemSlot = errors.New("invalid item slot")
	// ErrInvalidSkillSlot is returned when a skill index does not exist.
	ErrInvalidSkillSlot = errors.New("invalid skill slot")
	// ErrInvalidAction is returned for an unrecognized ActionType.
	ErrInvalidAction = errors.New("invalid action")
	// ErrEmptyTurnOrder is returned by the scheduler when no combatant can act.
	ErrEmptyTurnOrder = errors.New("empty turn order")
)

// Recoverable reports whether err is a decision failure the caller may fix by
// choosing again. Recoverable failures never mutate battle state.
func Recoverable(err error) bool {
	return errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ErrInsufficientResource) ||
		errors.Is(err, ErrInvalidItemSlot) ||
		errors.Is(err, ErrInvalidSkillSlot) ||
		errors.Is(err, ErrInvalidAction)
}

// ActionType identifies what a combatant does on its turn.
// The zero value (ActionUnknown) is intentionally invalid.
type ActionType int

const (
	ActionUnknown ActionType = iota // zero value; intentionally invalid
	ActionAttack
	ActionSkill
	ActionItem
)

// String returns the lowercase name of the ActionType.
func (a ActionType) String() string {
	switch a {
	case ActionAttack:
		return "attack"
	case ActionSkill:
		return "skill"
	case ActionItem:
		return "item"
	default:
		return "unknown"
	}
}

// ParseActionType maps "attack", "skill", or "item" to an ActionType.
func ParseActionType(s string) (ActionType, error) {
	switch s {
	case "attack":
		return ActionAttack, nil
	case "skill":
		return ActionSkill, nil
	case "item":
		return ActionItem, nil
	default:
		return ActionUnknown, fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// Decision is a fully resolved choice for one turn.
//
// Detail indexes the actor's Skills (ActionSkill) or Inventory (ActionItem).
// Target indexes the opposing roster for offensive actions and the actor's own
// roster for supportive ones; nil selects the default target.
type Decision struct {
	Action ActionType
	Detail int
	Target *int
}

// AttackDecision returns a plain attack on the default target.
func AttackDecision() Decision { return Decision{Action: ActionAttack} }

// TargetIndex returns a pointer to i, for building Decisions inline.
func TargetIndex(i int) *int { return &i }
