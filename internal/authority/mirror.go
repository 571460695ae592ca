package authority

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/udisondev/horde/internal/model"
)

// MirroredEnemy is the observer's read-only copy of an authoritative enemy.
type MirroredEnemy struct {
	Handle    model.EntityHandle
	Archetype model.Archetype
	Position  model.Vec3
	Genes     model.EnemyGenes
}

// Mirror holds replicated state on an observer.
// Apply is called by the replication client only.
type Mirror struct {
	mu         sync.RWMutex
	archetypes map[string]model.Archetype
	enemies    map[model.EntityHandle]MirroredEnemy
	waveIndex  int
}

// NewMirror creates an empty mirror
func NewMirror() *Mirror {
	return &Mirror{
		archetypes: make(map[string]model.Archetype),
		enemies:    make(map[model.EntityHandle]MirroredEnemy),
	}
}

// Apply folds one replicated command into the mirror.
func (m *Mirror) Apply(cmd Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch c := cmd.(type) {
	case RegisterCommand:
		m.archetypes[c.Archetype.ID] = c.Archetype
	case SpawnCommand:
		a, ok := m.archetypes[c.ArchetypeID]
		if !ok {
			return fmt.Errorf("spawn %d: %w %q", c.Handle, ErrUnknownArchetype, c.ArchetypeID)
		}
		m.enemies[c.Handle] = MirroredEnemy{
			Handle:    c.Handle,
			Archetype: a,
			Position:  c.Position,
			Genes:     c.Genes,
		}
	case DespawnCommand:
		delete(m.enemies, c.Handle)
		slog.Debug("mirrored enemy removed", "handle", c.Handle, "reason", c.Reason.String())
	case WaveAdvancedCommand:
		m.waveIndex = c.Index
	default:
		return fmt.Errorf("unsupported command %T", cmd)
	}
	return nil
}

// Enemy returns a mirrored enemy by handle
func (m *Mirror) Enemy(h model.EntityHandle) (MirroredEnemy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enemies[h]
	return e, ok
}

// Enemies returns all mirrored enemies ordered by handle.
func (m *Mirror) Enemies() []MirroredEnemy {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]MirroredEnemy, 0, len(m.enemies))
	for _, e := range m.enemies {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Len returns the number of mirrored enemies
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.enemies)
}

// Archetypes returns the number of registered archetypes
func (m *Mirror) Archetypes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.archetypes)
}

// WaveIndex returns the last replicated wave index
func (m *Mirror) WaveIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.waveIndex
}

// Snapshot returns the commands that rebuild this mirror from empty:
// registrations, then live enemies, then the wave index.
func (m *Mirror) Snapshot() []Command {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Command, 0, len(m.archetypes)+len(m.enemies)+1)

	ids := make([]string, 0, len(m.archetypes))
	for id := range m.archetypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, RegisterCommand{Archetype: m.archetypes[id]})
	}

	handles := make([]model.EntityHandle, 0, len(m.enemies))
	for h := range m.enemies {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, h := range handles {
		e := m.enemies[h]
		out = append(out, SpawnCommand{
			Handle:      e.Handle,
			ArchetypeID: e.Archetype.ID,
			Position:    e.Position,
			Genes:       e.Genes,
		})
	}

	if m.waveIndex > 0 {
		out = append(out, WaveAdvancedCommand{Index: m.waveIndex})
	}
	return out
}
