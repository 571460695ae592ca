package genetic

import (
	"log/slog"
	"time"

	"github.com/udisondev/horde/internal/combat"
	"github.com/udisondev/horde/internal/model"
)

// EnemyLookup resolves live enemies by handle.
type EnemyLookup interface {
	Enemy(handle model.EntityHandle) (*model.Enemy, bool)
}

// FitnessSink receives fitness samples.
type FitnessSink interface {
	ReportFitness(genes model.EnemyGenes, damageDealt, timeAlive float64)
}

// Tracker turns combat events into fitness samples.
// It must be subscribed to the bus before anything that unregisters dead enemies.
type Tracker struct {
	enemies EnemyLookup
	sink    FitnessSink
	now     func() time.Duration
}

// NewTracker creates a tracker; now returns the session clock.
func NewTracker(enemies EnemyLookup, sink FitnessSink, now func() time.Duration) *Tracker {
	return &Tracker{enemies: enemies, sink: sink, now: now}
}

// Subscribe registers the tracker on both bus topics.
func (t *Tracker) Subscribe(bus *combat.Bus) {
	bus.SubscribeDamage(t)
	bus.SubscribeDeath(t)
}

// OnEnemyDamage accumulates damage dealt by the enemy.
func (t *Tracker) OnEnemyDamage(ev combat.DamageEvent) {
	enemy, ok := t.enemies.Enemy(ev.Handle)
	if !ok {
		return
	}
	enemy.AddDamage(ev.Amount)
}

// OnEnemyDeath reports the single fitness sample of a killed enemy.
func (t *Tracker) OnEnemyDeath(ev combat.DeathEvent) {
	enemy, ok := t.enemies.Enemy(ev.Handle)
	if !ok {
		slog.Debug("death of unknown enemy ignored", "handle", ev.Handle)
		return
	}
	if !enemy.MarkFitnessReported() {
		return
	}

	damage := ev.DamageDealt
	if damage <= 0 {
		damage = enemy.DamageDealt()
	}
	alive := ev.TimeAlive
	if alive <= 0 {
		alive = enemy.TimeAlive(t.now())
	}

	t.sink.ReportFitness(enemy.Genes(), damage, alive)
}
