package combat

// CombatantSnapshot is a read-only copy of a combatant's visible state.
type CombatantSnapshot struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Job       string   `json:"job,omitempty"`
	Faction   string   `json:"faction"`
	HP        int      `json:"hp"`
	MaxHP     int      `json:"max_hp"`
	MP        int      `json:"mp"`
	MaxMP     int      `json:"max_mp"`
	Speed     int      `json:"speed"`
	Defeated  bool     `json:"defeated"`
	Skills    []string `json:"skills,omitempty"`
	Inventory []string `json:"inventory,omitempty"`
}

// Snapshot is a read-only view of a battle for presentation layers.
type Snapshot struct {
	ID           string              `json:"id"`
	State        string              `json:"state"`
	Outcome      string              `json:"outcome,omitempty"`
	Actions      int                 `json:"actions"`
	Party        []CombatantSnapshot `json:"party"`
	Enemies      []CombatantSnapshot `json:"enemies"`
	TurnOrder    []string            `json:"turn_order"`
	CurrentActor string              `json:"current_actor,omitempty"`
}

// SnapshotCombatant copies c's visible state.
func SnapshotCombatant(c *Combatant) CombatantSnapshot {
	s := CombatantSnapshot{
		ID:       c.ID,
		Name:     c.Name,
		Job:      c.Job,
		Faction:  c.Faction.String(),
		HP:       c.CurrentHP,
		MaxHP:    c.MaxHP,
		MP:       c.CurrentMP,
		MaxMP:    c.MaxMP,
		Speed:    c.Speed,
		Defeated: c.IsDefeated(),
	}
	for _, sk := range c.Skills {
		s.Skills = append(s.Skills, sk.Name)
	}
	for _, it := range c.Inventory {
		s.Inventory = append(s.Inventory, it.Name)
	}
	return s
}

// Snapshot returns a copy of the battle's visible state.
func (b *Battle) Snapshot() Snapshot {
	s := Snapshot{
		ID:        b.id,
		State:     b.state.String(),
		Actions:   b.actions,
		Party:     make([]CombatantSnapshot, len(b.party)),
		Enemies:   make([]CombatantSnapshot, len(b.enemies)),
		TurnOrder: make([]string, len(b.order)),
	}
	if b.outcome != OutcomeNone {
		s.Outcome = b.outcome.String()
	}
	for i, c := range b.party {
		s.Party[i] = SnapshotCombatant(c)
	}
	for i, c := range b.enemies {
		s.Enemies[i] = SnapshotCombatant(c)
	}
	for i, c := range b.order {
		s.TurnOrder[i] = c.Name
	}
	if actor := b.CurrentActor(); actor != nil {
		s.CurrentActor = actor.Name
	}
	return s
}
