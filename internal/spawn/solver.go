package spawn

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/udisondev/horde/internal/model"
)

// SolverConfig configures spawn point placement.
type SolverConfig struct {
	// MinSpread is the minimum half-extent of the players' bounds on each axis
	MinSpread float64
	// VisibilityBuffer pushes points beyond typical view distance
	VisibilityBuffer float64
	// SideMargin widens the randomized axis beyond the expanded bounds
	SideMargin float64
	// Origin is the last-resort point when no player and no camera is known
	Origin model.Vec3
}

// DefaultSolverConfig returns stock placement parameters.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MinSpread:        10,
		VisibilityBuffer: 20,
		SideMargin:       5,
	}
}

// Solver computes candidate spawn points outside the players' combined view.
type Solver struct {
	cfg      SolverConfig
	viewport Viewport

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSolver creates a solver. viewport may be nil.
func NewSolver(cfg SolverConfig, viewport Viewport, rng *rand.Rand) *Solver {
	if rng == nil {
		rng = newRand(0)
	}
	return &Solver{cfg: cfg, viewport: viewport, rng: rng}
}

// ComputePoint returns a point on the given side of the players' expanded bounds.
func (s *Solver) ComputePoint(side model.Side, players []model.Vec3) model.Vec3 {
	if len(players) == 0 {
		return s.fallback(side)
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	var sumY float64
	for _, p := range players {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minZ = min(minZ, p.Z)
		maxZ = max(maxZ, p.Z)
		sumY += p.Y
	}

	cx, cz := (minX+maxX)/2, (minZ+maxZ)/2
	halfX := max((maxX-minX)/2, s.cfg.MinSpread) + s.cfg.VisibilityBuffer
	halfZ := max((maxZ-minZ)/2, s.cfg.MinSpread) + s.cfg.VisibilityBuffer
	y := sumY / float64(len(players))

	switch side {
	case model.SideLeft:
		return model.NewVec3(cx-halfX, y, cz+s.spread(halfZ+s.cfg.SideMargin))
	case model.SideRight:
		return model.NewVec3(cx+halfX, y, cz+s.spread(halfZ+s.cfg.SideMargin))
	case model.SideTop:
		return model.NewVec3(cx+s.spread(halfX+s.cfg.SideMargin), y, cz+halfZ)
	default:
		return model.NewVec3(cx+s.spread(halfX+s.cfg.SideMargin), y, cz-halfZ)
	}
}

// spread returns a uniform offset in [-half, half].
func (s *Solver) spread(half float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (s.rng.Float64()*2 - 1) * half
}

func (s *Solver) fallback(side model.Side) model.Vec3 {
	if s.viewport != nil {
		s.mu.Lock()
		t := s.rng.Float64()
		s.mu.Unlock()

		if p, ok := s.viewport.ViewportEdge(side, t); ok {
			slog.Error("no players for spawn placement, using camera edge",
				"side", side.String(),
				"point", p)
			return p
		}
	}

	slog.Error("no players for spawn placement, using origin",
		"side", side.String(),
		"origin", s.cfg.Origin)
	return s.cfg.Origin
}
