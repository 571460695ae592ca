package spawn

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/udisondev/horde/internal/model"
)

// SchedulerState is the wave scheduler state.
type SchedulerState uint8

const (
	SchedulerIdle SchedulerState = iota
	SchedulerSpawning
	SchedulerPausing
	SchedulerFinished
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerIdle:
		return "idle"
	case SchedulerSpawning:
		return "spawning"
	case SchedulerPausing:
		return "pausing"
	case SchedulerFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// WaveSpawner creates one enemy of an archetype.
type WaveSpawner interface {
	Spawn(ctx context.Context, archetype model.Archetype) (*model.Enemy, error)
}

type quota struct {
	archetype model.Archetype
	remaining int
}

// WaveScheduler spawns authored waves one enemy at a time.
// It is a tick-driven state machine: every wait is a countdown consumed by Tick.
type WaveScheduler struct {
	waves      []model.Wave
	archetypes map[string]model.Archetype
	spawner    WaveSpawner
	counter    PlayerCounter
	scaled     bool // multiplayer host: counts scale with connected players

	mu         sync.Mutex
	rng        *rand.Rand
	state      SchedulerState
	index      int
	quotas     []quota
	remaining  int
	multiplier int
	timer      time.Duration
	advanced   func(int)
}

// NewWaveScheduler creates a scheduler over waves.
// scaled enables player-count scaling (multiplayer host only).
func NewWaveScheduler(
	waves []model.Wave,
	archetypes map[string]model.Archetype,
	spawner WaveSpawner,
	counter PlayerCounter,
	scaled bool,
	rng *rand.Rand,
) *WaveScheduler {
	if rng == nil {
		rng = newRand(0)
	}
	return &WaveScheduler{
		waves:      waves,
		archetypes: archetypes,
		spawner:    spawner,
		counter:    counter,
		scaled:     scaled,
		rng:        rng,
		multiplier: 1,
	}
}

// SetAdvancedFunc installs a hook fired with the new index whenever the wave advances.
func (w *WaveScheduler) SetAdvancedFunc(fn func(int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advanced = fn
}

// Start begins or resumes spawning at the current wave index.
func (w *WaveScheduler) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.waves) == 0 {
		slog.Warn("wave scheduler has no waves")
		return
	}
	if w.state != SchedulerIdle {
		return
	}
	if w.index >= len(w.waves) {
		w.state = SchedulerFinished
		return
	}
	w.timer = 0
	w.beginWave()
}

// Stop halts spawning and drops the pending wait and quotas. The index is kept.
func (w *WaveScheduler) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clear()
}

// Reset stops the scheduler and rewinds to the first wave.
func (w *WaveScheduler) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clear()
	w.index = 0
}

func (w *WaveScheduler) clear() {
	w.state = SchedulerIdle
	w.quotas = nil
	w.remaining = 0
	w.timer = 0
	w.multiplier = 1
}

// Index returns the current wave index
func (w *WaveScheduler) Index() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index
}

// State returns the scheduler state
func (w *WaveScheduler) State() SchedulerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Remaining returns the number of enemies left to spawn in the current wave
func (w *WaveScheduler) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.remaining
}

// Multiplier returns the player-count multiplier of the current wave
func (w *WaveScheduler) Multiplier() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.multiplier
}

// PlayerCountMultiplier returns max(1, connected) when scaled, else 1.
func PlayerCountMultiplier(counter PlayerCounter, scaled bool) int {
	if !scaled || counter == nil {
		return 1
	}
	return max(1, counter.ConnectedPlayerCount())
}

// Tick advances the scheduler by dt, performing every step that became due.
func (w *WaveScheduler) Tick(ctx context.Context, dt time.Duration) {
	w.mu.Lock()
	if w.state != SchedulerSpawning && w.state != SchedulerPausing {
		w.mu.Unlock()
		return
	}
	w.timer -= dt
	w.mu.Unlock()

	for ctx.Err() == nil {
		w.mu.Lock()
		if w.timer > 0 {
			w.mu.Unlock()
			return
		}

		switch w.state {
		case SchedulerSpawning:
			if w.remaining == 0 {
				w.state = SchedulerPausing
				w.timer += w.waves[w.index].TimeUntilNextWave
				w.mu.Unlock()
				continue
			}
			archetype := w.pick()
			w.timer += w.waves[w.index].SpawnInterval
			w.mu.Unlock()

			// Spawn runs unlocked: hooks may query the scheduler.
			if _, err := w.spawner.Spawn(ctx, archetype); err != nil {
				slog.Warn("wave spawn failed",
					"archetype", archetype.ID,
					"error", err)
			}

		case SchedulerPausing:
			w.index++
			index := w.index
			hook := w.advanced
			if w.index >= len(w.waves) {
				w.state = SchedulerFinished
				w.quotas = nil
				slog.Info("all waves completed", "waves", len(w.waves))
			} else {
				w.beginWave()
			}
			w.mu.Unlock()

			if hook != nil {
				hook(index)
			}

		default:
			w.mu.Unlock()
			return
		}
	}
}

// beginWave builds the quota table for the current index. The timer keeps any
// overshoot from the previous step. Caller holds mu.
func (w *WaveScheduler) beginWave() {
	wave := w.waves[w.index]
	w.multiplier = PlayerCountMultiplier(w.counter, w.scaled)
	w.quotas = w.quotas[:0]
	w.remaining = 0

	byID := make(map[string]int)
	for _, entry := range wave.Entries {
		if entry.BaseCount <= 0 {
			slog.Warn("wave entry skipped (non-positive count)",
				"wave", wave.Name,
				"archetype", entry.ArchetypeID,
				"count", entry.BaseCount)
			continue
		}
		archetype, ok := w.archetypes[entry.ArchetypeID]
		if !ok {
			slog.Warn("wave entry skipped (unknown archetype)",
				"wave", wave.Name,
				"archetype", entry.ArchetypeID)
			continue
		}

		count := entry.EffectiveCount(w.multiplier)
		if i, seen := byID[archetype.ID]; seen {
			w.quotas[i].remaining += count
		} else {
			byID[archetype.ID] = len(w.quotas)
			w.quotas = append(w.quotas, quota{archetype: archetype, remaining: count})
		}
		w.remaining += count
	}

	if w.remaining == 0 {
		slog.Warn("wave has no enemies, pausing", "wave", wave.Name, "index", w.index)
		w.state = SchedulerPausing
		w.timer += wave.TimeUntilNextWave
		return
	}

	w.state = SchedulerSpawning
	slog.Info("wave started",
		"wave", wave.Name,
		"index", w.index,
		"enemies", w.remaining,
		"multiplier", w.multiplier)
}

// pick draws an archetype weighted by remaining count and decrements it. Caller holds mu.
func (w *WaveScheduler) pick() model.Archetype {
	r := w.rng.IntN(w.remaining)
	for i := range w.quotas {
		q := &w.quotas[i]
		if r < q.remaining {
			q.remaining--
			w.remaining--
			return q.archetype
		}
		r -= q.remaining
	}
	// unreachable while remaining matches the quotas
	q := &w.quotas[len(w.quotas)-1]
	q.remaining--
	w.remaining--
	return q.archetype
}
