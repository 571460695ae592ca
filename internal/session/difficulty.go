package session

import (
	"time"

	"github.com/udisondev/horde/internal/model"
)

// RampConfig describes a linear health/damage ramp over session time.
type RampConfig struct {
	HealthPerMinute float64
	DamagePerMinute float64
	// Max caps both multipliers; values <= 1 disable the ramp
	Max float64
}

// Ramp is a DifficultyProvider that grows with the session clock.
type Ramp struct {
	cfg RampConfig
	now func() time.Duration
}

// NewRamp builds a ramp reading elapsed time from now.
func NewRamp(cfg RampConfig, now func() time.Duration) *Ramp {
	return &Ramp{cfg: cfg, now: now}
}

// DifficultyMultipliers returns 1 + rate × minutes for health and damage, capped at Max.
func (r *Ramp) DifficultyMultipliers() model.Difficulty {
	if r.cfg.Max <= 1 || r.now == nil {
		return model.NoDifficulty
	}
	minutes := r.now().Minutes()
	return model.Difficulty{
		Health: r.scale(r.cfg.HealthPerMinute, minutes),
		Damage: r.scale(r.cfg.DamagePerMinute, minutes),
	}
}

func (r *Ramp) scale(rate, minutes float64) float64 {
	if rate <= 0 {
		return 1
	}
	return min(1+rate*minutes, r.cfg.Max)
}
