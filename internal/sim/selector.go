package sim

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/game/dice"
)

// NewSelector builds the enemy targeting strategy named by the
// battle.enemy_targeting setting. Seed zero draws from the crypto source.
func NewSelector(targeting string, seed uint64, logger *zap.Logger) combat.TargetSelector {
	if targeting == "first_living" {
		return combat.FirstLivingSelector{}
	}
	return combat.NewRandomSelector(dice.NewLoggedSource(dice.FromSeed(seed), logger))
}
