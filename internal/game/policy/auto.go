package policy

import (
	"context"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
)

// Auto is a deterministic autopilot for party members.
//
// In priority order it heals the most wounded living ally below half HP with
// the strongest affordable heal skill or an HP consumable, then casts the
// affordable damage skill that beats a plain attack by the most, and otherwise
// attacks. Offensive actions always target the first living foe.
type Auto struct{}

// NewAuto returns an Auto policy.
func NewAuto() *Auto { return &Auto{} }

// Decide implements combat.DecisionSource. It never returns an error.
func (a *Auto) Decide(_ context.Context, req combat.DecisionRequest) (combat.Decision, error) {
	actor := req.Actor
	if w := mostWounded(req.Allies); w >= 0 {
		if slot := bestHeal(actor); slot >= 0 {
			return combat.Decision{Action: combat.ActionSkill, Detail: slot, Target: combat.TargetIndex(w)}, nil
		}
		if slot := hpConsumable(actor); slot >= 0 {
			return combat.Decision{Action: combat.ActionItem, Detail: slot, Target: combat.TargetIndex(w)}, nil
		}
	}

	foe := firstLivingIndex(req.Foes)
	if foe < 0 {
		return combat.AttackDecision(), nil
	}
	target := req.Foes[foe]
	if slot := bestDamage(actor, target); slot >= 0 {
		return combat.Decision{Action: combat.ActionSkill, Detail: slot, Target: combat.TargetIndex(foe)}, nil
	}
	return combat.Decision{Action: combat.ActionAttack, Target: combat.TargetIndex(foe)}, nil
}

// mostWounded returns the index of the living ally with the lowest HP ratio
// below one half, or -1.
func mostWounded(allies []*combat.Combatant) int {
	best := -1
	for i, c := range allies {
		if c.IsDefeated() || c.CurrentHP*2 >= c.MaxHP {
			continue
		}
		// Compare CurrentHP/MaxHP without floats.
		if best < 0 || c.CurrentHP*allies[best].MaxHP < allies[best].CurrentHP*c.MaxHP {
			best = i
		}
	}
	return best
}

func bestHeal(actor *combat.Combatant) int {
	best := -1
	for i, s := range actor.Skills {
		if s.Effect != combat.EffectHeal || s.MPCost > actor.CurrentMP {
			continue
		}
		if best < 0 || s.HealAmount > actor.Skills[best].HealAmount {
			best = i
		}
	}
	return best
}

func hpConsumable(actor *combat.Combatant) int {
	for i, it := range actor.Inventory {
		if it.UsableInCombat() && it.RestoredResource() == combat.ResourceHP && it.Amount > 0 {
			return i
		}
	}
	return -1
}

func bestDamage(actor, target *combat.Combatant) int {
	best, bestDmg := -1, combat.AttackDamage(actor.Attack, target.Defense)
	for i, s := range actor.Skills {
		if s.Effect != combat.EffectDamage || s.MPCost > actor.CurrentMP {
			continue
		}
		if dmg := combat.SkillDamage(actor.Attack, s.DamageMultiplier, target.Defense); dmg > bestDmg {
			best, bestDmg = i, dmg
		}
	}
	return best
}

func firstLivingIndex(roster []*combat.Combatant) int {
	for i, c := range roster {
		if !c.IsDefeated() {
			return i
		}
	}
	return -1
}
