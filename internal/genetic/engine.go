package genetic

import (
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/horde/internal/model"
)

// Config holds evolution parameters.
type Config struct {
	// PoolSize is the number of gene records kept in each generation
	PoolSize int
	// MutationRate is the probability that an offspring gets mutated (0-1)
	MutationRate float64
	// MutationStrength is the upper bound of the non-negative delta added by mutation
	MutationStrength float64
	// MaxMultiplier caps every gene multiplier
	MaxMultiplier float64
	// Interval is the elapsed time between evolution attempts
	Interval time.Duration
	// MinSamples is the number of fitness samples required to evolve
	MinSamples int
	// Seed for random number generation (0 for random seed)
	Seed uint64
}

// DefaultConfig returns the stock evolution parameters.
func DefaultConfig() Config {
	return Config{
		PoolSize:         10,
		MutationRate:     0.2,
		MutationStrength: 0.15,
		MaxMultiplier:    model.MaxMultiplier,
		Interval:         30 * time.Second,
		MinSamples:       5,
	}
}

// Pool is an immutable generation of gene records.
// A new Pool is built for every evolution cycle and swapped in atomically.
type Pool struct {
	Generation int
	Members    []model.EnemyGenes
}

// Generation describes one completed evolution cycle.
type Generation struct {
	Number        int
	Members       []model.EnemyGenes
	Best          model.GeneFitnessSample
	BestFitness   float64
	SampleCount   int
	DominantTrait model.Trait
	EvolvedAt     time.Time
}

// Engine evolves enemy gene multipliers from observed combat fitness.
// NextGenes may be called from any goroutine; Tick/Evolve are driven by the session loop.
type Engine struct {
	cfg  Config
	pool atomic.Pointer[Pool]

	mu      sync.Mutex
	rng     *rand.Rand
	samples []model.GeneFitnessSample
	elapsed time.Duration
	best    model.GeneFitnessSample
	hasBest bool
	evolved func(Generation)
}

// NewEngine creates an engine with a pool of default genes.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.MaxMultiplier < model.MinMultiplier {
		cfg.MaxMultiplier = def.MaxMultiplier
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}

	var rng *rand.Rand
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	} else {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}

	e := &Engine{cfg: cfg, rng: rng}
	e.pool.Store(defaultPool(cfg.PoolSize))
	return e
}

func defaultPool(size int) *Pool {
	members := make([]model.EnemyGenes, size)
	for i := range members {
		members[i] = model.DefaultGenes()
	}
	return &Pool{Members: members}
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// SetEvolvedFunc installs a hook called after every successful evolution cycle.
func (e *Engine) SetEvolvedFunc(fn func(Generation)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evolved = fn
}

// NextGenes returns a copy of a uniformly chosen member of the current pool.
func (e *Engine) NextGenes() model.EnemyGenes {
	pool := e.pool.Load()

	e.mu.Lock()
	idx := e.rng.IntN(len(pool.Members))
	e.mu.Unlock()

	return pool.Members[idx]
}

// ReportFitness buffers one combat outcome for the next cycle.
// Non-finite values are discarded.
func (e *Engine) ReportFitness(genes model.EnemyGenes, damageDealt, timeAlive float64) {
	if !model.IsFinite(genes.Health, genes.Damage, genes.Speed, damageDealt, timeAlive) {
		slog.Warn("fitness sample discarded (non-finite)",
			"damageDealt", damageDealt,
			"timeAlive", timeAlive)
		return
	}
	sample := model.GeneFitnessSample{
		Genes:       genes,
		DamageDealt: max(damageDealt, 0),
		TimeAlive:   max(timeAlive, 0),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.samples = append(e.samples, sample)
}

// SampleCount returns the number of buffered samples
func (e *Engine) SampleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.samples)
}

// Tick advances the evolution timer by dt and evolves once the interval elapsed.
// Returns true if a new generation was produced.
func (e *Engine) Tick(dt time.Duration) bool {
	e.mu.Lock()
	e.elapsed += dt
	if e.elapsed < e.cfg.Interval {
		e.mu.Unlock()
		return false
	}
	e.elapsed = 0
	e.mu.Unlock()

	return e.Evolve()
}

// Evolve runs one evolution cycle immediately.
// With fewer than MinSamples buffered the cycle is skipped and the samples are kept.
func (e *Engine) Evolve() bool {
	e.mu.Lock()

	if len(e.samples) < e.cfg.MinSamples {
		slog.Debug("evolution skipped",
			"samples", len(e.samples),
			"required", e.cfg.MinSamples)
		e.mu.Unlock()
		return false
	}

	samples := e.samples
	e.samples = nil

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Fitness() > samples[j].Fitness()
	})

	eliteCount := max(1, len(samples)/5)
	elites := make([]model.EnemyGenes, eliteCount)
	for i := range elites {
		elites[i] = samples[i].Genes.Clamp(e.cfg.MaxMultiplier)
	}

	members := make([]model.EnemyGenes, 0, e.cfg.PoolSize)
	for _, g := range elites {
		if len(members) == e.cfg.PoolSize {
			break
		}
		members = append(members, g)
	}
	for len(members) < e.cfg.PoolSize {
		parent := elites[e.rng.IntN(len(elites))]
		members = append(members, Mutate(e.rng, parent, e.cfg))
	}

	prev := e.pool.Load()
	next := &Pool{Generation: prev.Generation + 1, Members: members}
	e.pool.Store(next)

	e.best = samples[0]
	e.hasBest = true
	evolved := e.evolved
	e.mu.Unlock()

	gen := Generation{
		Number:        next.Generation,
		Members:       append([]model.EnemyGenes(nil), members...),
		Best:          samples[0],
		BestFitness:   samples[0].Fitness(),
		SampleCount:   len(samples),
		DominantTrait: samples[0].Genes.DominantTrait(),
		EvolvedAt:     time.Now(),
	}

	slog.Info("gene pool evolved",
		"generation", gen.Number,
		"samples", gen.SampleCount,
		"elites", eliteCount,
		"bestFitness", gen.BestFitness,
		"dominantTrait", gen.DominantTrait.String())

	if evolved != nil {
		evolved(gen)
	}
	return true
}

// Pool returns the current generation snapshot. Callers must not modify it.
func (e *Engine) Pool() *Pool {
	return e.pool.Load()
}

// Generation returns the current generation number
func (e *Engine) Generation() int {
	return e.pool.Load().Generation
}

// Best returns the top sample of the last evolution cycle.
func (e *Engine) Best() (model.GeneFitnessSample, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.best, e.hasBest
}

// DominantTrait returns the largest multiplier of the best gene record,
// or of the baseline genes before the first cycle.
func (e *Engine) DominantTrait() model.Trait {
	best, ok := e.Best()
	if !ok {
		return model.DefaultGenes().DominantTrait()
	}
	return best.Genes.DominantTrait()
}

// Restore replaces the pool with previously persisted members.
// Members are clamped; the pool is truncated or padded with default genes to PoolSize.
func (e *Engine) Restore(generation int, members []model.EnemyGenes) {
	restored := make([]model.EnemyGenes, e.cfg.PoolSize)
	for i := range restored {
		if i < len(members) {
			restored[i] = members[i].Clamp(e.cfg.MaxMultiplier)
		} else {
			restored[i] = model.DefaultGenes()
		}
	}
	e.pool.Store(&Pool{Generation: generation, Members: restored})

	slog.Info("gene pool restored", "generation", generation, "members", len(members))
}

// Reset returns the engine to a default pool and drops buffered samples and timers.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.samples = nil
	e.elapsed = 0
	e.best = model.GeneFitnessSample{}
	e.hasBest = false
	e.pool.Store(defaultPool(e.cfg.PoolSize))
}

// CancelTimer drops the accumulated evolution time without touching the pool.
func (e *Engine) CancelTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.elapsed = 0
}
