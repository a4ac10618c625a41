package combat_test

import (
	"fmt"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
)

// fixedSrc is a deterministic Source returning val for every Intn call.
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(_ int) int { return f.val }

func drawSkill(rt *rapid.T, label string) combat.Skill {
	return combat.Skill{
		Name:             label,
		MPCost:           rapid.IntRange(0, 30).Draw(rt, label+"_cost"),
		DamageMultiplier: rapid.SampledFrom([]float64{0, 1, 1.2, 1.5, 2}).Draw(rt, label+"_mult"),
		Effect:           rapid.SampledFrom([]combat.EffectKind{combat.EffectDamage, combat.EffectHeal}).Draw(rt, label+"_effect"),
		HealAmount:       rapid.IntRange(0, 60).Draw(rt, label+"_heal"),
	}
}

func drawItem(rt *rapid.T, label string) combat.Item {
	return combat.Item{
		Name:     label,
		Category: rapid.SampledFrom([]combat.ItemCategory{combat.CategoryConsumable, combat.CategoryWeapon}).Draw(rt, label+"_category"),
		Restores: rapid.SampledFrom([]combat.Resource{"", combat.ResourceHP, combat.ResourceMP}).Draw(rt, label+"_restores"),
		Amount:   rapid.IntRange(0, 80).Draw(rt, label+"_amount"),
	}
}

func drawCombatant(rt *rapid.T, label string, faction combat.Faction) *combat.Combatant {
	maxHP := rapid.IntRange(1, 150).Draw(rt, label+"_max_hp")
	maxMP := rapid.IntRange(0, 60).Draw(rt, label+"_max_mp")
	c := &combat.Combatant{
		ID:        label,
		Name:      label,
		Faction:   faction,
		MaxHP:     maxHP,
		CurrentHP: rapid.IntRange(1, maxHP).Draw(rt, label+"_hp"),
		MaxMP:     maxMP,
		CurrentMP: rapid.IntRange(0, maxMP).Draw(rt, label+"_mp"),
		Attack:    rapid.IntRange(0, 40).Draw(rt, label+"_atk"),
		Defense:   rapid.IntRange(0, 30).Draw(rt, label+"_def"),
		Speed:     rapid.IntRange(0, 10).Draw(rt, label+"_spd"),
	}
	nSkills := rapid.IntRange(0, 2).Draw(rt, label+"_skills")
	for i := 0; i < nSkills; i++ {
		c.Skills = append(c.Skills, drawSkill(rt, fmt.Sprintf("%s_skill%d", label, i)))
	}
	nItems := rapid.IntRange(0, 2).Draw(rt, label+"_items")
	for i := 0; i < nItems; i++ {
		c.Inventory = append(c.Inventory, drawItem(rt, fmt.Sprintf("%s_item%d", label, i)))
	}
	return c
}

func drawRoster(rt *rapid.T, label string, faction combat.Faction) []*combat.Combatant {
	n := rapid.IntRange(1, 4).Draw(rt, label+"_size")
	roster := make([]*combat.Combatant, n)
	for i := range roster {
		roster[i] = drawCombatant(rt, fmt.Sprintf("%s%d", label, i), faction)
	}
	return roster
}

// cloneAll deep-copies the combatants so later mutations can be detected.
func cloneAll(cs ...*combat.Combatant) []combat.Combatant {
	out := make([]combat.Combatant, len(cs))
	for i, c := range cs {
		v := *c
		v.Skills = append([]combat.Skill(nil), c.Skills...)
		v.Inventory = append([]combat.Item(nil), c.Inventory...)
		out[i] = v
	}
	return out
}

func assertVitalsInBounds(t assert.TestingT, cs ...*combat.Combatant) {
	for _, c := range cs {
		assert.GreaterOrEqual(t, c.CurrentHP, 0, "%s hp", c.Name)
		assert.LessOrEqual(t, c.CurrentHP, c.MaxHP, "%s hp", c.Name)
		assert.GreaterOrEqual(t, c.CurrentMP, 0, "%s mp", c.Name)
		assert.LessOrEqual(t, c.CurrentMP, c.MaxMP, "%s mp", c.Name)
	}
}
