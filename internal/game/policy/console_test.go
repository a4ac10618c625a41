package policy_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/game/policy"
	"github.com/cory-johannsen/turnbattle/internal/render"
)

func request() combat.DecisionRequest {
	hero := &combat.Combatant{Name: "Arthur", MaxHP: 100, CurrentHP: 100, Faction: combat.FactionPlayer}
	goblin := &combat.Combatant{Name: "Goblin", MaxHP: 40, CurrentHP: 40, Faction: combat.FactionEnemy}
	return combat.DecisionRequest{Actor: hero, Allies: []*combat.Combatant{hero}, Foes: []*combat.Combatant{goblin}}
}

func TestConsole_ReadsDecisions(t *testing.T) {
	var out bytes.Buffer
	c := policy.NewConsole(strings.NewReader("skill 1 @1\nbogus\n"), &out, render.Renderer{})
	ctx := context.Background()

	dec, err := c.Decide(ctx, request())
	require.NoError(t, err)
	assert.Equal(t, combat.ActionSkill, dec.Action)
	assert.Contains(t, out.String(), "Arthur's turn")

	_, err = c.Decide(ctx, request())
	assert.ErrorIs(t, err, combat.ErrInvalidAction)
	assert.Contains(t, out.String(), "unknown command")

	_, err = c.Decide(ctx, request())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.False(t, combat.Recoverable(err))
}

func TestConsole_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := policy.NewConsole(strings.NewReader("attack\n"), io.Discard, render.Renderer{})
	_, err := c.Decide(ctx, request())
	assert.ErrorIs(t, err, context.Canceled)
}
