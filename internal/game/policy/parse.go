// Package policy provides decision sources for party members: an interactive
// console and a deterministic autopilot.
package policy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
)

// ParseDecision parses one console line into a Decision.
//
// Accepted forms (indices are 1-based):
//
//	attack [@T]      a [@T]      1 [@T]
//	skill N [@T]     s N [@T]    2 N [@T]
//	item N [@T]      i N [@T]    3 N [@T]
//
// Postcondition: unparsable input returns an error wrapping combat.ErrInvalidAction,
// so callers treat it like any other rejected decision.
func ParseDecision(line string) (combat.Decision, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(line)))
	if len(fields) == 0 {
		return combat.Decision{}, fmt.Errorf("%w: empty input", combat.ErrInvalidAction)
	}

	var target *int
	if last := fields[len(fields)-1]; strings.HasPrefix(last, "@") {
		n, err := parseIndex(strings.TrimPrefix(last, "@"))
		if err != nil {
			return combat.Decision{}, fmt.Errorf("%w: target %q", combat.ErrInvalidAction, last)
		}
		target = &n
		fields = fields[:len(fields)-1]
	}
	if len(fields) == 0 {
		return combat.Decision{}, fmt.Errorf("%w: missing action", combat.ErrInvalidAction)
	}

	var action combat.ActionType
	switch fields[0] {
	case "attack", "a", "1":
		action = combat.ActionAttack
	case "skill", "s", "2":
		action = combat.ActionSkill
	case "item", "i", "3":
		action = combat.ActionItem
	default:
		return combat.Decision{}, fmt.Errorf("%w: unknown command %q", combat.ErrInvalidAction, fields[0])
	}

	dec := combat.Decision{Action: action, Target: target}
	switch {
	case action == combat.ActionAttack:
		if len(fields) != 1 {
			return combat.Decision{}, fmt.Errorf("%w: attack takes no argument", combat.ErrInvalidAction)
		}
	case len(fields) != 2:
		return combat.Decision{}, fmt.Errorf("%w: %s needs exactly one number", combat.ErrInvalidAction, action)
	default:
		n, err := parseIndex(fields[1])
		if err != nil {
			return combat.Decision{}, fmt.Errorf("%w: %s %q", combat.ErrInvalidAction, action, fields[1])
		}
		dec.Detail = n
	}
	return dec, nil
}

// parseIndex converts a 1-based index to 0-based.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("index %d must be >= 1", n)
	}
	return n - 1, nil
}
