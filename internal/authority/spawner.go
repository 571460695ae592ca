package authority

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/horde/internal/model"
)

var (
	// ErrNotAuthoritative is returned when an observer asks for a spawner.
	ErrNotAuthoritative = errors.New("process is not spawn-authoritative")
	// ErrUnknownArchetype is returned for an archetype without an ID.
	ErrUnknownArchetype = errors.New("unknown archetype")
)

const defaultQueueSize = 256

// Config configures a Spawner.
type Config struct {
	// QueueSize bounds the outbound command channel
	QueueSize int
	// Now returns the session clock (defaults to zero)
	Now func() time.Duration
}

// Spawner is the only way to create and destroy enemies.
// It exists only on the authoritative process.
type Spawner struct {
	mode     Mode
	now      func() time.Duration
	commands chan Command

	nextHandle atomic.Uint32
	registerMu sync.Mutex
	archetypes sync.Map // map[string]model.Archetype
	dropped    atomic.Int64
}

// NewSpawner creates a spawner for an authoritative mode.
func NewSpawner(mode Mode, cfg Config) (*Spawner, error) {
	if !mode.IsAuthoritative() {
		return nil, ErrNotAuthoritative
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Duration { return 0 }
	}

	s := &Spawner{
		mode: mode,
		now:  cfg.Now,
	}
	if mode.Replicates() {
		s.commands = make(chan Command, cfg.QueueSize)
	}
	return s, nil
}

// Mode returns the process mode
func (s *Spawner) Mode() Mode {
	return s.mode
}

// Commands returns the outbound replication channel (nil when nothing replicates).
func (s *Spawner) Commands() <-chan Command {
	return s.commands
}

// Dropped returns the number of commands lost because the channel was full
func (s *Spawner) Dropped() int64 {
	return s.dropped.Load()
}

// RegisterArchetype makes an archetype known to replication.
// Returns true only for the first registration that reached the command queue;
// a dropped registration is retried on the next call.
func (s *Spawner) RegisterArchetype(a model.Archetype) bool {
	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	if _, ok := s.archetypes.Load(a.ID); ok {
		return false
	}
	if !s.emit(RegisterCommand{Archetype: a}) {
		return false
	}
	s.archetypes.Store(a.ID, a)
	slog.Debug("archetype registered", "archetype", a.ID)
	return true
}

// IsRegistered reports whether the archetype was registered
func (s *Spawner) IsRegistered(id string) bool {
	_, ok := s.archetypes.Load(id)
	return ok
}

// Archetypes returns registered archetypes ordered by ID.
func (s *Spawner) Archetypes() []model.Archetype {
	var out []model.Archetype
	s.archetypes.Range(func(_, value any) bool {
		out = append(out, value.(model.Archetype))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TrySpawn creates an enemy at point with genes already assigned.
// The archetype is registered first if needed. A replication failure is logged
// and the local enemy is returned anyway.
func (s *Spawner) TrySpawn(archetype model.Archetype, point model.Vec3, genes model.EnemyGenes) (*model.Enemy, error) {
	if archetype.ID == "" {
		return nil, ErrUnknownArchetype
	}
	s.RegisterArchetype(archetype)

	handle := model.EntityHandle(s.nextHandle.Add(1))
	enemy := model.NewEnemy(handle, archetype, point, genes, s.now())

	s.emit(SpawnCommand{
		Handle:      handle,
		ArchetypeID: archetype.ID,
		Position:    point,
		Genes:       genes,
	})
	return enemy, nil
}

// Despawn announces the removal of an enemy.
func (s *Spawner) Despawn(enemy *model.Enemy, reason DespawnReason) {
	s.emit(DespawnCommand{Handle: enemy.Handle(), Reason: reason})
}

// WaveAdvanced announces the wave index to observers.
func (s *Spawner) WaveAdvanced(index int) {
	s.emit(WaveAdvancedCommand{Index: index})
}

// emit queues cmd for replication and reports whether it was queued.
// Without a channel nothing replicates and every command counts as delivered.
func (s *Spawner) emit(cmd Command) bool {
	if s.commands == nil {
		return true
	}
	select {
	case s.commands <- cmd:
		return true
	default:
		s.dropped.Add(1)
		slog.Error("replication command dropped (queue full)",
			"command", commandName(cmd),
			"dropped", s.dropped.Load())
		return false
	}
}

func commandName(cmd Command) string {
	switch cmd.(type) {
	case RegisterCommand:
		return "register"
	case SpawnCommand:
		return "spawn"
	case DespawnCommand:
		return "despawn"
	case WaveAdvancedCommand:
		return "wave_advanced"
	default:
		return "unknown"
	}
}
