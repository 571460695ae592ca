package model

import "time"

// WaveEntry is one spawn quota inside a wave.
type WaveEntry struct {
	ArchetypeID string
	BaseCount   int
}

// EffectiveCount returns BaseCount scaled by the player-count multiplier.
func (e WaveEntry) EffectiveCount(multiplier int) int {
	if e.BaseCount <= 0 || multiplier <= 0 {
		return 0
	}
	return e.BaseCount * multiplier
}

// Wave is an authored batch of spawn quotas. Read-only at runtime.
type Wave struct {
	Name              string
	Entries           []WaveEntry
	TimeUntilNextWave time.Duration
	SpawnInterval     time.Duration
}

// TotalBase returns the sum of base counts (non-positive entries ignored).
func (w Wave) TotalBase() int {
	total := 0
	for _, e := range w.Entries {
		if e.BaseCount > 0 {
			total += e.BaseCount
		}
	}
	return total
}

// Difficulty is the externally computed time-based difficulty scalar.
type Difficulty struct {
	Health float64
	Damage float64
}

// NoDifficulty is the neutral difficulty (x1).
var NoDifficulty = Difficulty{Health: 1, Damage: 1}

// Archetype is an enemy template referenced by waves.
type Archetype struct {
	ID           string
	Name         string
	BoundsRadius float64
	BaseHealth   float64
	BaseDamage   float64
	BaseSpeed    float64
}

// Stats are effective enemy stats after genes and difficulty.
type Stats struct {
	Health float64
	Damage float64
	Speed  float64
}

// EffectiveStats applies genes and then difficulty on top of the base stats.
// Difficulty does not affect speed.
func (a Archetype) EffectiveStats(g EnemyGenes, d Difficulty) Stats {
	return Stats{
		Health: a.BaseHealth * g.Health * d.Health,
		Damage: a.BaseDamage * g.Damage * d.Damage,
		Speed:  a.BaseSpeed * g.Speed,
	}
}
