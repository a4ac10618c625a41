package combat

// InitializeOrder returns the living combatants sorted by Speed, fastest first.
// Ties keep their listing order, so a party listed before its enemies wins ties.
//
// Postcondition: the result is a new slice sharing the *Combatant values of the
// input; the input slice is not reordered.
func InitializeOrder(combatants []*Combatant) []*Combatant {
	order := make([]*Combatant, 0, len(combatants))
	for _, c := range combatants {
		if !c.IsDefeated() {
			order = append(order, c)
		}
	}
	sortBySpeedDesc(order)
	return order
}

// Advance returns the index following index in order, wrapping at the end.
//
// Postcondition: returns ErrEmptyTurnOrder when order is empty.
func Advance(order []*Combatant, index int) (int, error) {
	if len(order) == 0 {
		return 0, ErrEmptyTurnOrder
	}
	return (index + 1) % len(order), nil
}

// PruneDefeated returns order without its defeated combatants, preserving the
// relative order of the rest. Pruning an order with no defeated combatants
// returns an equal sequence.
func PruneDefeated(order []*Combatant) []*Combatant {
	live := make([]*Combatant, 0, len(order))
	for _, c := range order {
		if !c.IsDefeated() {
			live = append(live, c)
		}
	}
	return live
}

// sortBySpeedDesc sorts combatants in place, highest speed first.
// Insertion sort only swaps strictly faster combatants forward, so it is stable.
func sortBySpeedDesc(combatants []*Combatant) {
	n := len(combatants)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && combatants[j].Speed > combatants[j-1].Speed; j-- {
			combatants[j], combatants[j-1] = combatants[j-1], combatants[j]
		}
	}
}
