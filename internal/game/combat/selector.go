package combat

import "fmt"

// Source is the subset of dice.Source used for target selection.
// Using a local interface avoids importing the dice package.
type Source interface {
	Intn(n int) int
}

// TargetSelector picks the party member an enemy attacks.
type TargetSelector interface {
	// SelectForEnemy returns a living member of party, or nil if none remain.
	SelectForEnemy(party []*Combatant) *Combatant
}

// RandomSelector chooses uniformly among living party members.
type RandomSelector struct {
	src Source
}

// NewRandomSelector returns a RandomSelector drawing from src.
//
// Precondition: src must be non-nil.
func NewRandomSelector(src Source) *RandomSelector {
	return &RandomSelector{src: src}
}

// SelectForEnemy implements TargetSelector.
func (s *RandomSelector) SelectForEnemy(party []*Combatant) *Combatant {
	living := Living(party)
	if len(living) == 0 {
		return nil
	}
	return living[s.src.Intn(len(living))]
}

// FirstLivingSelector always chooses the first living party member.
// It makes enemy behavior reproducible in tests and replays.
type FirstLivingSelector struct{}

// SelectForEnemy implements TargetSelector.
func (FirstLivingSelector) SelectForEnemy(party []*Combatant) *Combatant {
	return FirstLiving(party)
}

// SelectForPlayer validates a caller-supplied index into candidates.
//
// Postcondition: returns the living combatant at index, or an error wrapping
// ErrInvalidTarget when index is out of range or the combatant is defeated.
func SelectForPlayer(candidates []*Combatant, index int) (*Combatant, error) {
	if index < 0 || index >= len(candidates) {
		return nil, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidTarget, index, len(candidates))
	}
	c := candidates[index]
	if c.IsDefeated() {
		return nil, fmt.Errorf("%w: %s is defeated", ErrInvalidTarget, c.Name)
	}
	return c, nil
}

// FirstLiving returns the first combatant in roster with HP remaining, or nil.
func FirstLiving(roster []*Combatant) *Combatant {
	for _, c := range roster {
		if !c.IsDefeated() {
			return c
		}
	}
	return nil
}

// Living returns a snapshot of the combatants in roster with HP remaining.
func Living(roster []*Combatant) []*Combatant {
	var alive []*Combatant
	for _, c := range roster {
		if !c.IsDefeated() {
			alive = append(alive, c)
		}
	}
	return alive
}

// AllDefeated reports whether every combatant in roster is at zero HP.
// An empty roster counts as defeated.
func AllDefeated(roster []*Combatant) bool {
	return FirstLiving(roster) == nil
}
