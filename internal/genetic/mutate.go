package genetic

import (
	"math/rand/v2"

	"github.com/udisondev/horde/internal/model"
)

// Mutate returns a child of parent. With probability cfg.MutationRate one trait,
// chosen uniformly, grows by a delta in [0, cfg.MutationStrength). The result is clamped.
func Mutate(rng *rand.Rand, parent model.EnemyGenes, cfg Config) model.EnemyGenes {
	child := parent
	if rng.Float64() < cfg.MutationRate {
		trait := model.Traits[rng.IntN(len(model.Traits))]
		delta := rng.Float64() * cfg.MutationStrength
		child = child.With(trait, child.Get(trait)+delta)
	}
	return child.Clamp(cfg.MaxMultiplier)
}
