package combat

import (
	"fmt"
	"math"
)

// MagnitudeKind says how an ActionResult's Magnitude was applied.
type MagnitudeKind string

const (
	MagnitudeDamage    MagnitudeKind = "damage"
	MagnitudeHeal      MagnitudeKind = "heal"
	MagnitudeRestoreMP MagnitudeKind = "restore_mp"
)

// ActionResult records what happened when one action was resolved.
type ActionResult struct {
	ActorID    string
	ActorName  string
	TargetID   string
	TargetName string
	Action     ActionType
	// Detail is the skill or item name; empty for a plain attack.
	Detail string
	// Magnitude is the damage dealt or the amount restored. For restoration it
	// is the nominal amount, which may exceed what clamping allowed.
	Magnitude      int
	Kind           MagnitudeKind
	MPSpent        int
	TargetDefeated bool
}

// AttackDamage computes physical damage: max(0, trunc(attack - defense/2)).
func AttackDamage(attack, defense int) int {
	return SkillDamage(attack, 1, defense)
}

// SkillDamage computes scaled damage: max(0, trunc(attack*multiplier - defense/2)).
// A zero multiplier is neutral.
func SkillDamage(attack int, multiplier float64, defense int) int {
	if multiplier == 0 {
		multiplier = 1
	}
	raw := math.Trunc(float64(attack)*multiplier - float64(defense)/2)
	if raw < 0 {
		return 0
	}
	return int(raw)
}

// Resolve applies one action by actor against target.
//
// detail indexes actor.Skills for ActionSkill and actor.Inventory for
// ActionItem; it is ignored for ActionAttack.
//
// Precondition: actor is non-nil.
// Postcondition: on error nothing is mutated; on success the effect, MP cost,
// and item consumption have all been applied.
func Resolve(actor *Combatant, action ActionType, detail int, target *Combatant) (ActionResult, error) {
	if actor.IsDefeated() {
		return ActionResult{}, fmt.Errorf("%w: %s cannot act while defeated", ErrInvalidAction, actor.Name)
	}
	if target == nil {
		return ActionResult{}, fmt.Errorf("%w: no target", ErrInvalidTarget)
	}
	if target.IsDefeated() {
		return ActionResult{}, fmt.Errorf("%w: %s is defeated", ErrInvalidTarget, target.Name)
	}

	switch action {
	case ActionAttack:
		return resolveAttack(actor, target), nil
	case ActionSkill:
		return resolveSkill(actor, detail, target)
	case ActionItem:
		return resolveItem(actor, detail, target)
	default:
		return ActionResult{}, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}
}

func resolveAttack(actor, target *Combatant) ActionResult {
	dmg := AttackDamage(actor.Attack, target.Defense)
	target.ApplyDamage(dmg)
	r := newResult(actor, target, ActionAttack)
	r.Magnitude = dmg
	r.Kind = MagnitudeDamage
	r.TargetDefeated = target.IsDefeated()
	return r
}

func resolveSkill(actor *Combatant, slot int, target *Combatant) (ActionResult, error) {
	if slot < 0 || slot >= len(actor.Skills) {
		return ActionResult{}, fmt.Errorf("%w: %s has no skill %d", ErrInvalidSkillSlot, actor.Name, slot)
	}
	skill := actor.Skills[slot]
	if skill.Effect != EffectDamage && skill.Effect != EffectHeal {
		return ActionResult{}, fmt.Errorf("%w: skill %q has unknown effect %q", ErrInvalidSkillSlot, skill.Name, skill.Effect)
	}
	if !actor.SpendMP(skill.MPCost) {
		return ActionResult{}, fmt.Errorf("%w: %s needs %d MP for %s, has %d",
			ErrInsufficientResource, actor.Name, skill.MPCost, skill.Name, actor.CurrentMP)
	}

	r := newResult(actor, target, ActionSkill)
	r.Detail = skill.Name
	r.MPSpent = skill.MPCost
	if skill.Effect == EffectHeal {
		target.RestoreHP(skill.HealAmount)
		r.Magnitude = skill.HealAmount
		r.Kind = MagnitudeHeal
		return r, nil
	}
	dmg := SkillDamage(actor.Attack, skill.DamageMultiplier, target.Defense)
	target.ApplyDamage(dmg)
	r.Magnitude = dmg
	r.Kind = MagnitudeDamage
	r.TargetDefeated = target.IsDefeated()
	return r, nil
}

func resolveItem(actor *Combatant, slot int, target *Combatant) (ActionResult, error) {
	if slot < 0 || slot >= len(actor.Inventory) {
		return ActionResult{}, fmt.Errorf("%w: %s has no item in slot %d", ErrInvalidItemSlot, actor.Name, slot)
	}
	item := actor.Inventory[slot]
	if !item.UsableInCombat() {
		return ActionResult{}, fmt.Errorf("%w: %s (%s) cannot be used in combat", ErrInvalidItemSlot, item.Name, item.Category)
	}

	r := newResult(actor, target, ActionItem)
	r.Detail = item.Name
	r.Magnitude = item.Amount
	switch item.RestoredResource() {
	case ResourceMP:
		target.RestoreMP(item.Amount)
		r.Kind = MagnitudeRestoreMP
	default:
		target.RestoreHP(item.Amount)
		r.Kind = MagnitudeHeal
	}
	actor.RemoveItem(slot)
	return r, nil
}

func newResult(actor, target *Combatant, action ActionType) ActionResult {
	return ActionResult{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		TargetID:   target.ID,
		TargetName: target.Name,
		Action:     action,
	}
}
