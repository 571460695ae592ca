package spawn

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/model"
	"github.com/udisondev/horde/internal/world"
)

// DespawnConfig configures the despawn/replacement sweep.
type DespawnConfig struct {
	// Interval between sweeps
	Interval time.Duration
	// Radius is the distance from every player beyond which an enemy may be removed
	Radius float64
	// FadeDuration drives alpha 1→0 before removal; zero removes immediately
	FadeDuration time.Duration
	// RequireOffscreen keeps enemies that any player can still partially see
	RequireOffscreen bool
	// ViewHalfWidth and ViewHalfDepth describe each player's view rectangle
	ViewHalfWidth float64
	ViewHalfDepth float64
}

// DefaultDespawnConfig returns stock sweep parameters.
func DefaultDespawnConfig() DespawnConfig {
	return DespawnConfig{
		Interval:         3 * time.Second,
		Radius:           60,
		FadeDuration:     500 * time.Millisecond,
		RequireOffscreen: true,
		ViewHalfWidth:    20,
		ViewHalfDepth:    12,
	}
}

// FadeSink receives enemy alpha updates for rendering collaborators.
type FadeSink interface {
	SetAlpha(handle model.EntityHandle, alpha float64)
}

// EnemyPool is the live enemy set the sweep works on.
type EnemyPool interface {
	Enemies() []*model.Enemy
	Despawn(enemy *model.Enemy, reason authority.DespawnReason) bool
	SpawnReplacement(ctx context.Context, archetype model.Archetype, lastPosition model.Vec3) (*model.Enemy, error)
}

type fadeTask struct {
	enemy     *model.Enemy
	remaining time.Duration
}

// DespawnLoop removes enemies that drifted away from every player and
// replaces each with one of the same archetype across the players.
type DespawnLoop struct {
	cfg     DespawnConfig
	pool    EnemyPool
	players PlayerSource
	fade    FadeSink

	mu      sync.Mutex
	elapsed time.Duration
	fading  map[model.EntityHandle]*fadeTask
}

// NewDespawnLoop creates a sweep. fade may be nil.
func NewDespawnLoop(cfg DespawnConfig, pool EnemyPool, players PlayerSource, fade FadeSink) *DespawnLoop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultDespawnConfig().Interval
	}
	return &DespawnLoop{
		cfg:     cfg,
		pool:    pool,
		players: players,
		fade:    fade,
		fading:  make(map[model.EntityHandle]*fadeTask),
	}
}

// Tick advances fades and runs a sweep whenever the interval elapsed.
func (d *DespawnLoop) Tick(ctx context.Context, dt time.Duration) {
	d.advanceFades(ctx, dt)

	d.mu.Lock()
	d.elapsed += dt
	due := d.elapsed >= d.cfg.Interval
	if due {
		d.elapsed = 0
	}
	d.mu.Unlock()

	if due {
		d.Sweep(ctx)
	}
}

// Sweep checks every live enemy once.
func (d *DespawnLoop) Sweep(ctx context.Context) {
	positions := d.players.PlayerSnapshot().All()
	if len(positions) == 0 {
		slog.Debug("despawn sweep skipped (no players)")
		return
	}
	views := world.ViewsFor(positions, d.cfg.ViewHalfWidth, d.cfg.ViewHalfDepth)

	for _, enemy := range d.pool.Enemies() {
		if !enemy.IsAlive() || !d.qualifies(enemy, positions, views) {
			continue
		}

		if d.cfg.FadeDuration <= 0 {
			d.complete(ctx, enemy)
			continue
		}
		if !enemy.BeginFade() {
			continue
		}

		d.mu.Lock()
		d.fading[enemy.Handle()] = &fadeTask{enemy: enemy, remaining: d.cfg.FadeDuration}
		d.mu.Unlock()
		d.setAlpha(enemy.Handle(), 1)

		slog.Debug("enemy fading out",
			"handle", enemy.Handle(),
			"archetype", enemy.ArchetypeID())
	}
}

// qualifies reports whether enemy is beyond the radius of every player and,
// when required, outside every player's view.
func (d *DespawnLoop) qualifies(enemy *model.Enemy, players []model.Vec3, views []world.ViewRect) bool {
	pos := enemy.Position()
	radiusSq := d.cfg.Radius * d.cfg.Radius
	for _, p := range players {
		if pos.DistanceSquared(p) <= radiusSq {
			return false
		}
	}
	if d.cfg.RequireOffscreen && world.VisibleToAny(views, enemy.Bounds()) {
		return false
	}
	return true
}

func (d *DespawnLoop) advanceFades(ctx context.Context, dt time.Duration) {
	d.mu.Lock()
	var done []*model.Enemy
	type update struct {
		handle model.EntityHandle
		alpha  float64
	}
	updates := make([]update, 0, len(d.fading))
	for handle, task := range d.fading {
		task.remaining -= dt
		if task.remaining <= 0 {
			done = append(done, task.enemy)
			delete(d.fading, handle)
			continue
		}
		updates = append(updates, update{handle: handle, alpha: float64(task.remaining) / float64(d.cfg.FadeDuration)})
	}
	d.mu.Unlock()

	for _, u := range updates {
		d.setAlpha(u.handle, u.alpha)
	}
	for _, enemy := range done {
		d.setAlpha(enemy.Handle(), 0)
		d.complete(ctx, enemy)
	}
}

// complete removes the enemy and requests its replacement on the opposite side.
func (d *DespawnLoop) complete(ctx context.Context, enemy *model.Enemy) {
	last := enemy.Position()
	if !d.pool.Despawn(enemy, authority.ReasonDistance) {
		return
	}

	replacement, err := d.pool.SpawnReplacement(ctx, enemy.Archetype(), last)
	if err != nil {
		slog.Warn("replacement spawn failed",
			"archetype", enemy.ArchetypeID(),
			"error", err)
		return
	}

	slog.Debug("enemy replaced",
		"old", enemy.Handle(),
		"new", replacement.Handle(),
		"side", replacement.SpawnSide().String())
}

// Cancel aborts pending fades, restores alpha and drops the sweep timer.
func (d *DespawnLoop) Cancel() {
	d.mu.Lock()
	tasks := d.fading
	d.fading = make(map[model.EntityHandle]*fadeTask)
	d.elapsed = 0
	d.mu.Unlock()

	for handle, task := range tasks {
		task.enemy.CancelFade()
		d.setAlpha(handle, 1)
	}
}

// Fading returns the number of enemies currently fading out
func (d *DespawnLoop) Fading() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fading)
}

func (d *DespawnLoop) setAlpha(handle model.EntityHandle, alpha float64) {
	if d.fade != nil {
		d.fade.SetAlpha(handle, alpha)
	}
}
