package spawn

import (
	"math/rand/v2"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/model"
)

// PlayerSource supplies the authoritative view of connected players.
type PlayerSource interface {
	PlayerSnapshot() model.PlayerSnapshot
}

// PlayerCounter supplies the number of connected players.
type PlayerCounter interface {
	ConnectedPlayerCount() int
}

// DifficultyProvider supplies the time-based difficulty scalar.
type DifficultyProvider interface {
	DifficultyMultipliers() model.Difficulty
}

// GeometryChecker tests static geometry for solid colliders.
type GeometryChecker interface {
	OverlapSphere(center model.Vec3, radius float64) bool
}

// Viewport projects points just beyond the camera edge.
type Viewport interface {
	ViewportEdge(side model.Side, t float64) (model.Vec3, bool)
}

// GeneSource hands out genes for new enemies.
type GeneSource interface {
	NextGenes() model.EnemyGenes
}

// Authority creates and destroys replicated enemies.
type Authority interface {
	TrySpawn(archetype model.Archetype, point model.Vec3, genes model.EnemyGenes) (*model.Enemy, error)
	Despawn(enemy *model.Enemy, reason authority.DespawnReason)
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// placementPositions returns the positions spawn placement is computed around:
// active players, or every player when all of them are downed.
func placementPositions(s model.PlayerSnapshot) []model.Vec3 {
	if active := s.Active(); len(active) > 0 {
		return active
	}
	return s.All()
}
