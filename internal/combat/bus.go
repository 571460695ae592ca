package combat

import (
	"sync"

	"github.com/udisondev/horde/internal/model"
)

// DamageEvent is published when an enemy deals damage to a player.
type DamageEvent struct {
	Handle model.EntityHandle
	Amount float64
}

// DeathEvent is published once when an enemy is killed in combat.
// Zero DamageDealt/TimeAlive mean "unknown to the publisher"; subscribers
// fall back to their own bookkeeping.
type DeathEvent struct {
	Handle      model.EntityHandle
	DamageDealt float64
	TimeAlive   float64 // seconds
}

// DamageListener receives enemy damage events.
type DamageListener interface {
	OnEnemyDamage(DamageEvent)
}

// DeathListener receives enemy death events.
type DeathListener interface {
	OnEnemyDeath(DeathEvent)
}

// Bus fans out combat events to subscribers synchronously on the publisher's goroutine.
type Bus struct {
	mu     sync.RWMutex
	damage []DamageListener
	death  []DeathListener
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeDamage adds a damage listener
func (b *Bus) SubscribeDamage(l DamageListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.damage = append(b.damage, l)
}

// SubscribeDeath adds a death listener
func (b *Bus) SubscribeDeath(l DeathListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.death = append(b.death, l)
}

// PublishDamage delivers ev to every damage listener in subscription order.
func (b *Bus) PublishDamage(ev DamageEvent) {
	b.mu.RLock()
	listeners := b.damage
	b.mu.RUnlock()

	for _, l := range listeners {
		l.OnEnemyDamage(ev)
	}
}

// PublishDeath delivers ev to every death listener in subscription order.
func (b *Bus) PublishDeath(ev DeathEvent) {
	b.mu.RLock()
	listeners := b.death
	b.mu.RUnlock()

	for _, l := range listeners {
		l.OnEnemyDeath(ev)
	}
}
