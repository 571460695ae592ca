package model

import (
	"sync"
	"sync/atomic"
	"time"
)

// EntityHandle identifies a spawned enemy across authority and observers.
type EntityHandle uint32

// EnemyState is the enemy lifecycle state.
type EnemyState int32

const (
	EnemyAlive EnemyState = iota
	EnemyFadingOut
	EnemyRemoved
)

func (s EnemyState) String() string {
	switch s {
	case EnemyAlive:
		return "alive"
	case EnemyFadingOut:
		return "fading_out"
	case EnemyRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Enemy is a live enemy instance.
// Genes and archetype are fixed at creation; position is updated by external movement.
type Enemy struct {
	handle    EntityHandle
	archetype Archetype
	genes     EnemyGenes
	spawnedAt time.Duration // session clock
	side      Side

	mu       sync.RWMutex
	position Vec3
	damage   float64

	state           atomic.Int32
	fitnessReported atomic.Bool
}

// NewEnemy creates an alive enemy with its genes already assigned.
func NewEnemy(handle EntityHandle, archetype Archetype, position Vec3, genes EnemyGenes, spawnedAt time.Duration) *Enemy {
	return &Enemy{
		handle:    handle,
		archetype: archetype,
		genes:     genes,
		spawnedAt: spawnedAt,
		position:  position,
	}
}

// Handle returns the entity handle
func (e *Enemy) Handle() EntityHandle {
	return e.handle
}

// Archetype returns the enemy template
func (e *Enemy) Archetype() Archetype {
	return e.archetype
}

// ArchetypeID returns the template id
func (e *Enemy) ArchetypeID() string {
	return e.archetype.ID
}

// Genes returns a copy of the enemy's genes
func (e *Enemy) Genes() EnemyGenes {
	return e.genes
}

// SpawnedAt returns the session clock value at spawn
func (e *Enemy) SpawnedAt() time.Duration {
	return e.spawnedAt
}

// SetSpawnSide records the side the enemy was spawned on.
func (e *Enemy) SetSpawnSide(s Side) {
	e.side = s
}

// SpawnSide returns the side the enemy was spawned on.
func (e *Enemy) SpawnSide() Side {
	return e.side
}

// Position returns current position
func (e *Enemy) Position() Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position
}

// SetPosition updates current position
func (e *Enemy) SetPosition(p Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = p
}

// Bounds returns the visual bounds around the current position.
func (e *Enemy) Bounds() Bounds {
	return BoundsAround(e.Position(), e.archetype.BoundsRadius)
}

// AddDamage accumulates damage dealt to players.
func (e *Enemy) AddDamage(amount float64) {
	if amount <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.damage += amount
}

// DamageDealt returns accumulated damage dealt to players.
func (e *Enemy) DamageDealt() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.damage
}

// State returns lifecycle state (atomic read)
func (e *Enemy) State() EnemyState {
	return EnemyState(e.state.Load())
}

// IsAlive reports whether the enemy is alive and not fading.
func (e *Enemy) IsAlive() bool {
	return e.State() == EnemyAlive
}

// BeginFade moves Alive → FadingOut. Returns false if the enemy was not alive.
func (e *Enemy) BeginFade() bool {
	return e.state.CompareAndSwap(int32(EnemyAlive), int32(EnemyFadingOut))
}

// CancelFade moves FadingOut → Alive. Returns false if the enemy was not fading.
func (e *Enemy) CancelFade() bool {
	return e.state.CompareAndSwap(int32(EnemyFadingOut), int32(EnemyAlive))
}

// MarkRemoved moves the enemy to Removed. Returns false if it already was.
func (e *Enemy) MarkRemoved() bool {
	for {
		cur := e.state.Load()
		if cur == int32(EnemyRemoved) {
			return false
		}
		if e.state.CompareAndSwap(cur, int32(EnemyRemoved)) {
			return true
		}
	}
}

// MarkFitnessReported latches the one fitness sample this enemy may produce.
// Returns true only for the first caller.
func (e *Enemy) MarkFitnessReported() bool {
	return e.fitnessReported.CompareAndSwap(false, true)
}

// FitnessReported reports whether a sample was already produced.
func (e *Enemy) FitnessReported() bool {
	return e.fitnessReported.Load()
}

// TimeAlive returns seconds elapsed since spawn at the given session clock.
func (e *Enemy) TimeAlive(now time.Duration) float64 {
	d := now - e.spawnedAt
	if d < 0 {
		return 0
	}
	return d.Seconds()
}
