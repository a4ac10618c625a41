package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
)

// RegisterModules installs the battle.* helper table into L:
//
//	battle.attack_damage(attack, defense)             -> number
//	battle.skill_damage(attack, multiplier, defense)  -> number
//	battle.log(message)                               -> nil
//
// Precondition: L must be from NewSandboxedState; logger must be non-nil.
func RegisterModules(L *lua.LState, logger *zap.Logger) {
	mod := L.NewTable()
	L.SetField(mod, "attack_damage", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(combat.AttackDamage(L.CheckInt(1), L.CheckInt(2))))
		return 1
	}))
	L.SetField(mod, "skill_damage", L.NewFunction(func(L *lua.LState) int {
		dmg := combat.SkillDamage(L.CheckInt(1), float64(L.CheckNumber(2)), L.CheckInt(3))
		L.Push(lua.LNumber(dmg))
		return 1
	}))
	L.SetField(mod, "log", L.NewFunction(func(L *lua.LState) int {
		logger.Info("lua policy", zap.String("message", L.CheckString(1)))
		return 0
	}))
	L.SetGlobal("battle", mod)
}

// combatantTable converts c into the Lua table shape handed to decide().
func combatantTable(L *lua.LState, c *combat.Combatant) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("job", lua.LString(c.Job))
	t.RawSetString("hp", lua.LNumber(c.CurrentHP))
	t.RawSetString("max_hp", lua.LNumber(c.MaxHP))
	t.RawSetString("mp", lua.LNumber(c.CurrentMP))
	t.RawSetString("max_mp", lua.LNumber(c.MaxMP))
	t.RawSetString("attack", lua.LNumber(c.Attack))
	t.RawSetString("defense", lua.LNumber(c.Defense))
	t.RawSetString("speed", lua.LNumber(c.Speed))
	t.RawSetString("defeated", lua.LBool(c.IsDefeated()))

	skills := L.NewTable()
	for _, s := range c.Skills {
		st := L.NewTable()
		st.RawSetString("name", lua.LString(s.Name))
		st.RawSetString("mp_cost", lua.LNumber(s.MPCost))
		st.RawSetString("multiplier", lua.LNumber(s.DamageMultiplier))
		st.RawSetString("effect", lua.LString(s.Effect))
		st.RawSetString("heal_amount", lua.LNumber(s.HealAmount))
		skills.Append(st)
	}
	t.RawSetString("skills", skills)

	items := L.NewTable()
	for _, it := range c.Inventory {
		itt := L.NewTable()
		itt.RawSetString("name", lua.LString(it.Name))
		itt.RawSetString("category", lua.LString(it.Category))
		itt.RawSetString("restores", lua.LString(it.RestoredResource()))
		itt.RawSetString("amount", lua.LNumber(it.Amount))
		itt.RawSetString("usable", lua.LBool(it.UsableInCombat()))
		items.Append(itt)
	}
	t.RawSetString("items", items)
	return t
}

func rosterTable(L *lua.LState, roster []*combat.Combatant) *lua.LTable {
	t := L.NewTable()
	for _, c := range roster {
		t.Append(combatantTable(L, c))
	}
	return t
}
