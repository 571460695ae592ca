package spawn

import (
	"log/slog"

	"github.com/udisondev/horde/internal/model"
)

// SafetyConfig configures spawn point validation.
type SafetyConfig struct {
	// MinDistanceFromPlayers rejects points closer than this to any player
	MinDistanceFromPlayers float64
	// CheckRadius is the sphere tested against static geometry
	CheckRadius float64
	// MaxAttempts bounds the number of candidates per spawn
	MaxAttempts int
}

// DefaultSafetyConfig returns stock validation parameters.
func DefaultSafetyConfig() SafetyConfig {
	return SafetyConfig{
		MinDistanceFromPlayers: 15,
		CheckRadius:            1,
		MaxAttempts:            10,
	}
}

// PointSolver produces candidate points for a side.
type PointSolver interface {
	ComputePoint(side model.Side, players []model.Vec3) model.Vec3
}

// Validator accepts or rejects spawn candidates.
type Validator struct {
	cfg      SafetyConfig
	geometry GeometryChecker
	solver   PointSolver
}

// NewValidator creates a validator. geometry may be nil (open field).
func NewValidator(cfg SafetyConfig, geometry GeometryChecker, solver PointSolver) *Validator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultSafetyConfig().MaxAttempts
	}
	return &Validator{cfg: cfg, geometry: geometry, solver: solver}
}

// MaxAttempts returns the configured attempt bound
func (v *Validator) MaxAttempts() int {
	return v.cfg.MaxAttempts
}

// IsSafe reports whether point is clear of solid geometry and far enough from every player.
// A non-finite point, or a distance that cannot be compared, is never safe.
func (v *Validator) IsSafe(point model.Vec3, players []model.Vec3) bool {
	if !point.IsFinite() {
		return false
	}
	if v.geometry != nil && v.geometry.OverlapSphere(point, v.cfg.CheckRadius) {
		return false
	}

	minSq := v.cfg.MinDistanceFromPlayers * v.cfg.MinDistanceFromPlayers
	for _, p := range players {
		if !(point.DistanceSquared(p) >= minSq) {
			return false
		}
	}
	return true
}

// FindSafePoint asks the solver for up to maxAttempts candidates on side and returns
// the first safe one. When none is safe the last candidate is returned with safe=false.
// Placement uses active players; distance safety uses every player, downed included.
func (v *Validator) FindSafePoint(side model.Side, players model.PlayerSnapshot, maxAttempts int) (candidate model.SpawnCandidate, attempts int, safe bool) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	targets := placementPositions(players)
	guarded := players.All()

	candidate.Side = side
	for attempts < maxAttempts {
		attempts++
		candidate.Point = v.solver.ComputePoint(side, targets)
		if v.IsSafe(candidate.Point, guarded) {
			return candidate, attempts, true
		}
	}

	slog.Warn("no safe spawn point found, using last candidate",
		"side", side.String(),
		"attempts", attempts,
		"point", candidate.Point)
	return candidate, attempts, false
}
