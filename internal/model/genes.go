package model

// Gene bounds.
const (
	MinMultiplier = 1.0
	MaxMultiplier = 3.0
)

// Trait names one of the three gene multipliers.
type Trait uint8

const (
	TraitHealth Trait = iota
	TraitDamage
	TraitSpeed
)

// Traits lists all traits in declaration order.
var Traits = [3]Trait{TraitHealth, TraitDamage, TraitSpeed}

func (t Trait) String() string {
	switch t {
	case TraitHealth:
		return "health"
	case TraitDamage:
		return "damage"
	case TraitSpeed:
		return "speed"
	default:
		return "unknown"
	}
}

// ParseTrait returns the trait named s.
func ParseTrait(s string) (Trait, bool) {
	for _, t := range Traits {
		if t.String() == s {
			return t, true
		}
	}
	return TraitHealth, false
}

// EnemyGenes holds multiplicative stat modifiers for one enemy.
// Value type: every enemy gets its own copy at spawn time.
type EnemyGenes struct {
	Health float64
	Damage float64
	Speed  float64
}

// DefaultGenes returns the baseline genes (all multipliers 1.0).
func DefaultGenes() EnemyGenes {
	return EnemyGenes{Health: 1, Damage: 1, Speed: 1}
}

// Get returns the multiplier for a trait.
func (g EnemyGenes) Get(t Trait) float64 {
	switch t {
	case TraitHealth:
		return g.Health
	case TraitDamage:
		return g.Damage
	default:
		return g.Speed
	}
}

// With returns a copy with trait t set to v.
func (g EnemyGenes) With(t Trait, v float64) EnemyGenes {
	switch t {
	case TraitHealth:
		g.Health = v
	case TraitDamage:
		g.Damage = v
	default:
		g.Speed = v
	}
	return g
}

// Clamp returns a copy with every multiplier in [MinMultiplier, maxMultiplier].
func (g EnemyGenes) Clamp(maxMultiplier float64) EnemyGenes {
	return EnemyGenes{
		Health: clamp(g.Health, MinMultiplier, maxMultiplier),
		Damage: clamp(g.Damage, MinMultiplier, maxMultiplier),
		Speed:  clamp(g.Speed, MinMultiplier, maxMultiplier),
	}
}

// Within reports whether every multiplier lies in [MinMultiplier, maxMultiplier].
func (g EnemyGenes) Within(maxMultiplier float64) bool {
	for _, t := range Traits {
		v := g.Get(t)
		if v < MinMultiplier || v > maxMultiplier {
			return false
		}
	}
	return true
}

// DominantTrait returns the trait with the largest multiplier.
// Ties resolve in Traits order.
func (g EnemyGenes) DominantTrait() Trait {
	best := TraitHealth
	for _, t := range Traits[1:] {
		if g.Get(t) > g.Get(best) {
			best = t
		}
	}
	return best
}

// GeneFitnessSample is one combat outcome for a gene record.
type GeneFitnessSample struct {
	Genes       EnemyGenes
	DamageDealt float64
	TimeAlive   float64 // seconds
}

// Fitness weights.
const (
	DamageWeight    = 2.0
	TimeAliveWeight = 0.5
)

// Fitness returns damage*2 + timeAlive*0.5.
func (s GeneFitnessSample) Fitness() float64 {
	return s.DamageDealt*DamageWeight + s.TimeAlive*TimeAliveWeight
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
