package content_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/game/content"
)

func TestLoadSkillFromBytes(t *testing.T) {
	s, err := content.LoadSkillFromBytes([]byte(`
id: fireball
name: Fireball
mp_cost: 10
damage_multiplier: 1.5
`))
	require.NoError(t, err)
	sk := s.Skill()
	assert.Equal(t, combat.EffectDamage, sk.Effect, "effect defaults to damage")
	assert.Equal(t, 1.5, sk.DamageMultiplier)
	assert.Equal(t, 10, sk.MPCost)
}

func TestLoadSkillFromBytes_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing id":     "name: X\nmp_cost: 1\n",
		"negative cost":  "id: x\nname: X\nmp_cost: -1\n",
		"unknown effect": "id: x\nname: X\neffect: buff\n",
		"heal w/o value": "id: x\nname: X\neffect: heal\n",
		"bad yaml":       "id: [\n",
	}
	for name, doc := range tests {
		_, err := content.LoadSkillFromBytes([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadItemFromBytes(t *testing.T) {
	d, err := content.LoadItemFromBytes([]byte("id: potion\nname: Potion\namount: 50\n"))
	require.NoError(t, err)
	it := d.Item()
	assert.Equal(t, combat.CategoryConsumable, it.Category)
	assert.Equal(t, combat.ResourceHP, it.RestoredResource())
	assert.True(t, it.UsableInCombat())

	d, err = content.LoadItemFromBytes([]byte("id: sword\nname: Sword\ncategory: weapon\n"))
	require.NoError(t, err)
	assert.False(t, d.Item().UsableInCombat())
}

func TestLoadItemFromBytes_Invalid(t *testing.T) {
	for _, doc := range []string{
		"id: x\nname: X\ncategory: food\n",
		"id: x\nname: X\nrestores: stamina\n",
		"id: x\nname: X\namount: -5\n",
		"name: X\n",
	} {
		_, err := content.LoadItemFromBytes([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadTemplateFromBytes_Invalid(t *testing.T) {
	for _, doc := range []string{
		"id: x\nname: X\nmax_hp: 0\n",
		"id: x\nname: X\nmax_hp: 10\nspeed: -1\n",
		"id: x\nmax_hp: 10\n",
	} {
		_, err := content.LoadTemplateFromBytes([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadEncounterFromBytes_Invalid(t *testing.T) {
	_, err := content.LoadEncounterFromBytes([]byte("id: e\nparty: [a]\n"))
	assert.Error(t, err)
	_, err = content.LoadEncounterFromBytes([]byte("id: e\nenemies: [a]\n"))
	assert.Error(t, err)
}

func TestTemplate_Property_NegativeStatRejected(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tmpl := content.CombatantTemplate{
			ID:      "t",
			Name:    "T",
			MaxHP:   rapid.IntRange(1, 500).Draw(rt, "max_hp"),
			Attack:  rapid.IntRange(0, 100).Draw(rt, "attack"),
			Defense: rapid.IntRange(0, 100).Draw(rt, "defense"),
			Speed:   rapid.IntRange(0, 100).Draw(rt, "speed"),
		}
		require.NoError(rt, tmpl.Validate())

		tmpl.Speed = rapid.IntRange(-100, -1).Draw(rt, "bad_speed")
		assert.Error(rt, tmpl.Validate())
	})
}
