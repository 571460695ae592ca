package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/combat"
	"github.com/udisondev/horde/internal/genetic"
	"github.com/udisondev/horde/internal/model"
	"github.com/udisondev/horde/internal/spawn"
)

// Players is the authoritative player view the session spawns around.
type Players interface {
	spawn.PlayerSource
	spawn.PlayerCounter
}

// Options configures a Session.
type Options struct {
	Mode       authority.Mode
	Waves      []model.Wave
	Archetypes map[string]model.Archetype
	Players    Players

	// Optional collaborators
	Geometry spawn.GeometryChecker
	Viewport spawn.Viewport
	Fade     spawn.FadeSink
	// Difficulty overrides the built-in Ramp
	Difficulty spawn.DifficultyProvider
	Ramp       RampConfig

	Solver    spawn.SolverConfig
	Safety    spawn.SafetyConfig
	Balancer  spawn.BalancerConfig
	Despawn   spawn.DespawnConfig
	Evolution genetic.Config

	// QueueSize bounds the replication command channel
	QueueSize int
	// Seed makes every random choice reproducible (0 for random seed)
	Seed uint64
}

// SpawnedFunc is fired once per successful spawn.
type SpawnedFunc func(handle model.EntityHandle, archetype model.Archetype, genes model.EnemyGenes)

// EvolvedFunc is fired after each completed evolution with the ID of the session that produced it.
type EvolvedFunc func(sessionID uuid.UUID, gen genetic.Generation)

// Session drives the three timed activities of the authoritative process:
// wave spawning, the despawn sweep and gene evolution.
// Hooks run on the tick goroutine and must not call lifecycle methods; ID is safe.
type Session struct {
	clock     *Clock
	bus       *combat.Bus
	spawner   *authority.Spawner
	engine    *genetic.Engine
	manager   *spawn.Manager
	scheduler *spawn.WaveScheduler
	despawn   *spawn.DespawnLoop
	tracker   *genetic.Tracker
	diff      spawn.DifficultyProvider
	stopCh    chan struct{}
	stopOnce  sync.Once

	id atomic.Pointer[uuid.UUID]

	mu      sync.Mutex
	running bool

	hookMu   sync.RWMutex
	spawned  SpawnedFunc
	advanced func(int)
	evolved  EvolvedFunc
}

// New wires a session. Observers get ErrNotAuthoritative: they never run spawning.
func New(opts Options) (*Session, error) {
	if opts.Players == nil {
		return nil, fmt.Errorf("creating session: players source is required")
	}

	clock := &Clock{}
	spawner, err := authority.NewSpawner(opts.Mode, authority.Config{
		QueueSize: opts.QueueSize,
		Now:       clock.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	evolution := opts.Evolution
	if evolution.Seed == 0 {
		evolution.Seed = opts.Seed
	}
	engine := genetic.NewEngine(evolution)

	solver := spawn.NewSolver(opts.Solver, opts.Viewport, seeded(opts.Seed, 1))
	validator := spawn.NewValidator(opts.Safety, opts.Geometry, solver)
	balancer := spawn.NewBalancer(opts.Balancer, seeded(opts.Seed, 2))
	manager := spawn.NewManager(spawner, engine, opts.Players, balancer, validator)

	scheduler := spawn.NewWaveScheduler(
		opts.Waves,
		opts.Archetypes,
		manager,
		opts.Players,
		opts.Mode.IsMultiplayerHost(),
		seeded(opts.Seed, 3),
	)
	despawn := spawn.NewDespawnLoop(opts.Despawn, manager, opts.Players, opts.Fade)

	s := &Session{
		clock:     clock,
		bus:       combat.NewBus(),
		spawner:   spawner,
		engine:    engine,
		manager:   manager,
		scheduler: scheduler,
		despawn:   despawn,
		diff:      difficulty(opts, clock),
		stopCh:    make(chan struct{}),
	}

	// The tracker reads the enemy before the manager unregisters it.
	s.tracker = genetic.NewTracker(manager, engine, clock.Now)
	s.tracker.Subscribe(s.bus)
	s.bus.SubscribeDeath(manager)

	s.renewID()

	manager.SetSpawnedFunc(s.onSpawned)
	scheduler.SetAdvancedFunc(s.onAdvanced)
	engine.SetEvolvedFunc(s.onEvolved)

	return s, nil
}

// ID returns the current session identifier (renewed on reset).
// It never blocks, so hooks may call it mid-tick.
func (s *Session) ID() uuid.UUID {
	return *s.id.Load()
}

func (s *Session) renewID() uuid.UUID {
	id := uuid.New()
	s.id.Store(&id)
	return id
}

// Clock returns the session clock
func (s *Session) Clock() *Clock { return s.clock }

// Bus returns the combat event bus
func (s *Session) Bus() *combat.Bus { return s.bus }

// Spawner returns the authoritative spawner
func (s *Session) Spawner() *authority.Spawner { return s.spawner }

// Engine returns the gene evolution engine
func (s *Session) Engine() *genetic.Engine { return s.engine }

// Manager returns the live enemy manager
func (s *Session) Manager() *spawn.Manager { return s.manager }

// Scheduler returns the wave scheduler
func (s *Session) Scheduler() *spawn.WaveScheduler { return s.scheduler }

// DespawnLoop returns the despawn sweep
func (s *Session) DespawnLoop() *spawn.DespawnLoop { return s.despawn }

// Running reports whether the session is ticking
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetSpawnedFunc installs the onEnemySpawned hook.
func (s *Session) SetSpawnedFunc(fn SpawnedFunc) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.spawned = fn
}

// SetWaveAdvancedFunc installs the onWaveAdvanced hook.
func (s *Session) SetWaveAdvancedFunc(fn func(int)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.advanced = fn
}

// SetEvolvedFunc installs the hook fired after each evolved generation.
func (s *Session) SetEvolvedFunc(fn EvolvedFunc) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.evolved = fn
}

// RequestStart starts or resumes the session.
func (s *Session) RequestStart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.scheduler.Start()

	slog.Info("session started",
		"sessionID", s.ID(),
		"mode", s.spawner.Mode().String(),
		"wave", s.scheduler.Index())
}

// RequestStop halts the session and cancels every pending timer. Live enemies stay.
func (s *Session) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	slog.Info("session stopped", "sessionID", s.ID())
}

// RequestReset stops the session, rewinds waves, removes session enemies
// and starts a fresh gene pool under a new session ID.
func (s *Session) RequestReset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.scheduler.Reset()
	removed := s.manager.Clear()
	s.engine.Reset()
	s.clock.reset()

	prev := s.ID()
	next := s.renewID()

	slog.Info("session reset",
		"previousSessionID", prev,
		"sessionID", next,
		"enemiesRemoved", removed)
}

func (s *Session) stopLocked() {
	s.running = false
	s.scheduler.Stop()
	s.despawn.Cancel()
	s.engine.CancelTimer()
}

// Tick advances all three activities by dt.
func (s *Session) Tick(ctx context.Context, dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || dt < 0 {
		return
	}
	s.clock.advance(dt)
	s.scheduler.Tick(ctx, dt)
	s.despawn.Tick(ctx, dt)
	s.engine.Tick(dt)
}

// Difficulty returns the current difficulty scalar (x1 without a provider)
func (s *Session) Difficulty() model.Difficulty {
	if s.diff == nil {
		return model.NoDifficulty
	}
	return s.diff.DifficultyMultipliers()
}

// EffectiveStats returns a live enemy's stats with genes and current difficulty applied.
func (s *Session) EffectiveStats(handle model.EntityHandle) (model.Stats, bool) {
	e, ok := s.manager.Enemy(handle)
	if !ok {
		return model.Stats{}, false
	}
	return e.Archetype().EffectiveStats(e.Genes(), s.Difficulty()), true
}

// OnEnemyDamage records damage an enemy dealt to a player.
func (s *Session) OnEnemyDamage(handle model.EntityHandle, amount float64) {
	s.bus.PublishDamage(combat.DamageEvent{Handle: handle, Amount: amount})
}

// OnEnemyDied reports a combat death; it feeds exactly one fitness sample.
// Zero damage/timeAlive fall back to tracked values.
func (s *Session) OnEnemyDied(handle model.EntityHandle, damageDealt, timeAlive float64) {
	s.bus.PublishDeath(combat.DeathEvent{Handle: handle, DamageDealt: damageDealt, TimeAlive: timeAlive})
}

// Run ticks the session at tickRate until ctx is canceled or Stop is called.
func (s *Session) Run(ctx context.Context, tickRate time.Duration) error {
	if tickRate <= 0 {
		tickRate = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	slog.Info("session loop started", "interval", tickRate)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("session loop stopping")
			return nil

		case <-s.stopCh:
			slog.Info("session loop stopped")
			return nil

		case now := <-ticker.C:
			s.Tick(ctx, now.Sub(last))
			last = now
		}
	}
}

// Stop ends Run
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Session) onSpawned(e *model.Enemy) {
	s.hookMu.RLock()
	hook := s.spawned
	s.hookMu.RUnlock()

	if hook != nil {
		hook(e.Handle(), e.Archetype(), e.Genes())
	}
}

func (s *Session) onAdvanced(index int) {
	s.spawner.WaveAdvanced(index)
	slog.Info("wave advanced", "index", index)

	s.hookMu.RLock()
	hook := s.advanced
	s.hookMu.RUnlock()

	if hook != nil {
		hook(index)
	}
}

func (s *Session) onEvolved(gen genetic.Generation) {
	s.hookMu.RLock()
	hook := s.evolved
	s.hookMu.RUnlock()

	if hook != nil {
		hook(s.ID(), gen)
	}
}

func difficulty(opts Options, clock *Clock) spawn.DifficultyProvider {
	if opts.Difficulty != nil {
		return opts.Difficulty
	}
	if opts.Ramp.Max > 1 {
		return NewRamp(opts.Ramp, clock.Now)
	}
	return nil
}

func seeded(seed, offset uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed+offset, seed+offset))
}
