package spawn

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/combat"
	"github.com/udisondev/horde/internal/model"
)

// Manager owns the live enemies of the current session and runs the spawn pipeline:
// side selection, safe point search, gene assignment and authoritative creation.
type Manager struct {
	enemies   sync.Map     // map[model.EntityHandle]*model.Enemy, handle → enemy
	count     atomic.Int32 // cached count of live enemies (O(1) access)
	authority Authority
	genes     GeneSource
	players   PlayerSource
	balancer  *Balancer
	validator *Validator

	mu      sync.RWMutex
	spawned func(*model.Enemy)
}

// NewManager creates new spawn manager
func NewManager(
	auth Authority,
	genes GeneSource,
	players PlayerSource,
	balancer *Balancer,
	validator *Validator,
) *Manager {
	return &Manager{
		authority: auth,
		genes:     genes,
		players:   players,
		balancer:  balancer,
		validator: validator,
	}
}

// SetSpawnedFunc installs a hook fired once per successful spawn.
func (m *Manager) SetSpawnedFunc(fn func(*model.Enemy)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spawned = fn
}

// Spawn places one enemy of archetype on a balanced side.
func (m *Manager) Spawn(ctx context.Context, archetype model.Archetype) (*model.Enemy, error) {
	snapshot := m.players.PlayerSnapshot()
	side := m.balancer.ChooseSide(m.alivePositions(), placementPositions(snapshot))
	return m.spawnOnSide(ctx, archetype, side, snapshot)
}

// SpawnReplacement places one enemy of archetype across the players from lastPosition.
func (m *Manager) SpawnReplacement(ctx context.Context, archetype model.Archetype, lastPosition model.Vec3) (*model.Enemy, error) {
	snapshot := m.players.PlayerSnapshot()
	side := m.balancer.OppositeSide(lastPosition, placementPositions(snapshot))
	return m.spawnOnSide(ctx, archetype, side, snapshot)
}

func (m *Manager) spawnOnSide(ctx context.Context, archetype model.Archetype, side model.Side, snapshot model.PlayerSnapshot) (*model.Enemy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidate, attempts, safe := m.validator.FindSafePoint(side, snapshot, m.validator.MaxAttempts())
	genes := m.genes.NextGenes()

	enemy, err := m.authority.TrySpawn(archetype, candidate.Point, genes)
	if err != nil {
		return nil, fmt.Errorf("spawning %q on %s: %w", archetype.ID, side, err)
	}
	enemy.SetSpawnSide(candidate.Side)

	m.enemies.Store(enemy.Handle(), enemy)
	m.count.Add(1)

	slog.Debug("enemy spawned",
		"handle", enemy.Handle(),
		"archetype", archetype.ID,
		"side", side.String(),
		"attempts", attempts,
		"safe", safe,
		"genes", genes)

	m.mu.RLock()
	hook := m.spawned
	m.mu.RUnlock()
	if hook != nil {
		hook(enemy)
	}
	return enemy, nil
}

// Despawn removes a live enemy. Non-death removals claim the fitness latch
// so they never produce a sample. Returns false if the enemy was already removed.
func (m *Manager) Despawn(enemy *model.Enemy, reason authority.DespawnReason) bool {
	if !enemy.MarkRemoved() {
		return false
	}
	if reason != authority.ReasonDeath {
		enemy.MarkFitnessReported()
	}

	if _, ok := m.enemies.LoadAndDelete(enemy.Handle()); ok {
		m.count.Add(-1)
	}
	m.authority.Despawn(enemy, reason)

	slog.Debug("enemy despawned",
		"handle", enemy.Handle(),
		"archetype", enemy.ArchetypeID(),
		"reason", reason.String())
	return true
}

// OnEnemyDeath removes a killed enemy. Subscribed to the combat bus after the fitness tracker.
func (m *Manager) OnEnemyDeath(ev combat.DeathEvent) {
	enemy, ok := m.Enemy(ev.Handle)
	if !ok {
		return
	}
	m.Despawn(enemy, authority.ReasonDeath)
}

// Clear despawns every live enemy (session reset). Returns the number removed.
func (m *Manager) Clear() int {
	removed := 0
	for _, enemy := range m.Enemies() {
		if m.Despawn(enemy, authority.ReasonReset) {
			removed++
		}
	}
	if removed > 0 {
		slog.Info("session enemies cleared", "count", removed)
	}
	return removed
}

// Enemy returns live enemy by handle
func (m *Manager) Enemy(handle model.EntityHandle) (*model.Enemy, bool) {
	value, ok := m.enemies.Load(handle)
	if !ok {
		return nil, false
	}
	return value.(*model.Enemy), true
}

// Enemies returns live enemies ordered by handle.
func (m *Manager) Enemies() []*model.Enemy {
	out := make([]*model.Enemy, 0, m.Count())
	m.enemies.Range(func(_, value any) bool {
		out = append(out, value.(*model.Enemy))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Handle() < out[j].Handle() })
	return out
}

// Count returns number of live enemies (O(1) cached count)
func (m *Manager) Count() int {
	return int(m.count.Load())
}

func (m *Manager) alivePositions() []model.Vec3 {
	var out []model.Vec3
	m.enemies.Range(func(_, value any) bool {
		if e := value.(*model.Enemy); e.IsAlive() {
			out = append(out, e.Position())
		}
		return true
	})
	return out
}
