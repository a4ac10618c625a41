package scripting_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/scripting"
)

func writeTempLua(t testing.TB, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.lua")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func loadPolicy(t *testing.T, src string) (*scripting.Policy, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	p, err := scripting.LoadPolicy(writeTempLua(t, src), 0, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, logs
}

func request() combat.DecisionRequest {
	mage := &combat.Combatant{
		Name: "Lilith", MaxHP: 80, CurrentHP: 80, MaxMP: 50, CurrentMP: 50, Attack: 20, Faction: combat.FactionPlayer,
		Skills: []combat.Skill{
			{Name: "Fireball", MPCost: 10, DamageMultiplier: 1.5, Effect: combat.EffectDamage},
			{Name: "Cure", MPCost: 15, Effect: combat.EffectHeal, HealAmount: 30},
		},
		Inventory: []combat.Item{{Name: "Potion", Category: combat.CategoryConsumable, Amount: 50}},
	}
	hero := &combat.Combatant{Name: "Arthur", MaxHP: 100, CurrentHP: 100, Attack: 15, Faction: combat.FactionPlayer}
	goblin := &combat.Combatant{Name: "Goblin", MaxHP: 40, CurrentHP: 0, Defense: 3, Faction: combat.FactionEnemy}
	wolf := &combat.Combatant{Name: "Wolf", MaxHP: 30, CurrentHP: 30, Defense: 2, Faction: combat.FactionEnemy}
	return combat.DecisionRequest{Actor: mage, Allies: []*combat.Combatant{hero, mage}, Foes: []*combat.Combatant{goblin, wolf}}
}

func TestPolicy_TableDecision(t *testing.T) {
	p, _ := loadPolicy(t, `
		function decide(actor, allies, foes)
			return { action = "skill", detail = 2, target = #allies }
		end
	`)
	dec, err := p.Decide(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, combat.Decision{Action: combat.ActionSkill, Detail: 1, Target: combat.TargetIndex(1)}, dec)
}

func TestPolicy_StringDecision(t *testing.T) {
	p, _ := loadPolicy(t, `function decide() return "attack" end`)
	dec, err := p.Decide(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, combat.AttackDecision(), dec)
}

func TestPolicy_SeesCombatantFields(t *testing.T) {
	p, logs := loadPolicy(t, `
		function decide(actor, allies, foes)
			battle.log(actor.name .. ":" .. actor.mp .. ":" .. actor.skills[2].name .. ":" .. tostring(foes[1].defeated))
			return "attack"
		end
	`)
	_, err := p.Decide(context.Background(), request())
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Lilith:50:Cure:true", logs.All()[0].ContextMap()["message"])
}

func TestPolicy_DamageHelpers(t *testing.T) {
	p, logs := loadPolicy(t, `
		function decide()
			battle.log(battle.attack_damage(15, 10) .. "," .. battle.skill_damage(20, 1.5, 8))
			return "attack"
		end
	`)
	_, err := p.Decide(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "10,26", logs.All()[0].ContextMap()["message"])
}

func TestPolicy_RuntimeErrorIsRecoverable(t *testing.T) {
	p, logs := loadPolicy(t, `function decide() error("intentional error") end`)
	_, err := p.Decide(context.Background(), request())
	require.ErrorIs(t, err, combat.ErrInvalidAction)
	assert.True(t, combat.Recoverable(err))
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestPolicy_BadReturnValues(t *testing.T) {
	for _, body := range []string{`return nil`, `return 5`, `return { action = "flee" }`, `return "dance"`} {
		p, _ := loadPolicy(t, "function decide() "+body+" end")
		_, err := p.Decide(context.Background(), request())
		assert.ErrorIs(t, err, combat.ErrInvalidAction, body)
	}
}

func TestPolicy_InfiniteLoopHitsLimit(t *testing.T) {
	core, _ := observer.New(zap.DebugLevel)
	p, err := scripting.LoadPolicy(writeTempLua(t, `function decide() while true do end end`), 500, zap.New(core))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Decide(context.Background(), request())
	assert.ErrorIs(t, err, combat.ErrInvalidAction)
}

func TestPolicy_CancelledContext(t *testing.T) {
	p, _ := loadPolicy(t, `function decide() return "attack" end`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Decide(ctx, request())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadPolicy_Errors(t *testing.T) {
	logger := zap.NewNop()
	_, err := scripting.LoadPolicy(writeTempLua(t, `x = 1`), 0, logger)
	assert.ErrorIs(t, err, scripting.ErrNoDecideFunction)

	_, err = scripting.LoadPolicy(writeTempLua(t, `this is not valid lua @@@@`), 0, logger)
	assert.Error(t, err)

	_, err = scripting.LoadPolicy(filepath.Join(t.TempDir(), "missing.lua"), 0, logger)
	assert.Error(t, err)

	_, err = scripting.LoadPolicy(writeTempLua(t, `while true do end`), 100, logger)
	assert.Error(t, err, "top-level code is bounded too")
}

func TestShippedHealerScript(t *testing.T) {
	p, err := scripting.LoadPolicy("../../content/scripts/healer.lua", 0, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	req := request()
	dec, err := p.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, combat.Decision{Action: combat.ActionSkill, Detail: 0, Target: combat.TargetIndex(1)}, dec)

	req.Allies[0].CurrentHP = 20
	dec, err = p.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, combat.Decision{Action: combat.ActionSkill, Detail: 1, Target: combat.TargetIndex(0)}, dec)
}

func TestShippedHealerScript_DrivesBattle(t *testing.T) {
	p, err := scripting.LoadPolicy("../../content/scripts/healer.lua", 0, zap.NewNop())
	require.NoError(t, err)
	defer p.Close()

	req := request()
	req.Foes[0].CurrentHP = 40
	b := combat.NewBattle(req.Allies, req.Foes, p, combat.WithSelector(combat.FirstLivingSelector{}))
	require.NoError(t, b.Start())
	for i := 0; i < 200 && b.State() == combat.StateInProgress; i++ {
		_, err := b.Step(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, combat.OutcomeEnemiesDefeated, b.Outcome())
}
