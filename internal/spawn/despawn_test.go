package spawn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/model"
)

func spawnAt(t *testing.T, rig *testRig, archetype model.Archetype, pos model.Vec3) *model.Enemy {
	t.Helper()
	e, err := rig.manager.Spawn(context.Background(), archetype)
	require.NoError(t, err)
	e.SetPosition(pos)
	return e
}

func TestDespawnLoop_FarFromEveryPlayerIsReplacedOpposite(t *testing.T) {
	// two players 40 apart, midpoint at the origin
	rig := newTestRig(t, authority.ModeHost, playersAt(model.NewVec3(-20, 0, 0), model.NewVec3(20, 0, 0)))
	far := spawnAt(t, rig, wraith, model.NewVec3(120, 0, 0)) // 100 from the nearest player
	near := spawnAt(t, rig, ghoul, model.NewVec3(70, 0, 0))  // 50 from the right player
	drainCommands(rig.spawner.Commands())

	cfg := DefaultDespawnConfig()
	cfg.Radius = 60
	cfg.FadeDuration = 0
	loop := NewDespawnLoop(cfg, rig.manager, rig.players, nil)

	loop.Tick(context.Background(), 3*time.Second)

	assert.Equal(t, model.EnemyRemoved, far.State())
	assert.True(t, near.IsAlive())
	assert.Equal(t, 2, rig.manager.Count())

	var replacement *model.Enemy
	for _, e := range rig.manager.Enemies() {
		if e.Handle() != near.Handle() {
			replacement = e
		}
	}
	require.NotNil(t, replacement)
	assert.Equal(t, "wraith", replacement.ArchetypeID())
	assert.Equal(t, model.SideLeft, replacement.SpawnSide())
	assert.Less(t, replacement.Position().X, -20.0)

	cmds := drainCommands(rig.spawner.Commands())
	require.Len(t, cmds, 2)
	assert.Equal(t, authority.DespawnCommand{Handle: far.Handle(), Reason: authority.ReasonDistance}, cmds[0])
	assert.IsType(t, authority.SpawnCommand{}, cmds[1])
}

func TestDespawnLoop_RunsOnInterval(t *testing.T) {
	rig := newTestRig(t, authority.ModeSingle, playersAt(model.Vec3{}))
	far := spawnAt(t, rig, ghoul, model.NewVec3(500, 0, 0))

	cfg := DefaultDespawnConfig()
	cfg.FadeDuration = 0
	loop := NewDespawnLoop(cfg, rig.manager, rig.players, nil)

	loop.Tick(context.Background(), 2*time.Second)
	assert.True(t, far.IsAlive())
	loop.Tick(context.Background(), time.Second)
	assert.Equal(t, model.EnemyRemoved, far.State())
}

func TestDespawnLoop_PartiallyVisibleIsKept(t *testing.T) {
	rig := newTestRig(t, authority.ModeSingle, playersAt(model.Vec3{}))
	// beyond the radius, but its bounds poke into the 20-wide view
	edge := spawnAt(t, rig, ghoul, model.NewVec3(20.5, 0, 0))

	cfg := DefaultDespawnConfig()
	cfg.Radius = 10
	cfg.FadeDuration = 0
	loop := NewDespawnLoop(cfg, rig.manager, rig.players, nil)

	loop.Sweep(context.Background())
	assert.True(t, edge.IsAlive())

	cfg.RequireOffscreen = false
	loop = NewDespawnLoop(cfg, rig.manager, rig.players, nil)
	loop.Sweep(context.Background())
	assert.Equal(t, model.EnemyRemoved, edge.State())
}

func TestDespawnLoop_FadeDrivesAlpha(t *testing.T) {
	rig := newTestRig(t, authority.ModeSingle, playersAt(model.Vec3{}))
	far := spawnAt(t, rig, ghoul, model.NewVec3(0, 0, 400))
	alpha := newAlphaRecorder()

	loop := NewDespawnLoop(DefaultDespawnConfig(), rig.manager, rig.players, alpha)
	ctx := context.Background()

	loop.Sweep(ctx)
	assert.Equal(t, model.EnemyFadingOut, far.State())
	assert.Equal(t, 1, loop.Fading())
	a, _ := alpha.get(far.Handle())
	assert.Equal(t, 1.0, a)

	loop.Tick(ctx, 250*time.Millisecond)
	a, _ = alpha.get(far.Handle())
	assert.InDelta(t, 0.5, a, 1e-9)

	loop.Tick(ctx, 250*time.Millisecond)
	a, _ = alpha.get(far.Handle())
	assert.Equal(t, 0.0, a)
	assert.Equal(t, model.EnemyRemoved, far.State())
	assert.Zero(t, loop.Fading())
	assert.Equal(t, 1, rig.manager.Count(), "replacement spawned")
	assert.True(t, far.FitnessReported(), "despawn never produces a fitness sample")
}

func TestDespawnLoop_CancelRestoresAlpha(t *testing.T) {
	rig := newTestRig(t, authority.ModeSingle, playersAt(model.Vec3{}))
	far := spawnAt(t, rig, ghoul, model.NewVec3(-400, 0, 0))
	alpha := newAlphaRecorder()

	loop := NewDespawnLoop(DefaultDespawnConfig(), rig.manager, rig.players, alpha)
	loop.Sweep(context.Background())
	loop.Tick(context.Background(), 100*time.Millisecond)

	loop.Cancel()

	assert.True(t, far.IsAlive())
	assert.Zero(t, loop.Fading())
	a, _ := alpha.get(far.Handle())
	assert.Equal(t, 1.0, a)

	loop.Tick(context.Background(), 2*time.Second)
	assert.True(t, far.IsAlive(), "sweep timer restarted by cancel")
}

func TestDespawnLoop_KilledWhileFading(t *testing.T) {
	rig := newTestRig(t, authority.ModeSingle, playersAt(model.Vec3{}))
	far := spawnAt(t, rig, ghoul, model.NewVec3(0, 0, -400))

	loop := NewDespawnLoop(DefaultDespawnConfig(), rig.manager, rig.players, nil)
	loop.Sweep(context.Background())
	require.True(t, rig.manager.Despawn(far, authority.ReasonDeath))

	loop.Tick(context.Background(), time.Second)
	assert.Zero(t, rig.manager.Count(), "no replacement for an enemy that died")
}

func TestDespawnLoop_NoPlayers(t *testing.T) {
	rig := newTestRig(t, authority.ModeSingle, playersAt(model.Vec3{}))
	far := spawnAt(t, rig, ghoul, model.NewVec3(900, 0, 0))

	loop := NewDespawnLoop(DefaultDespawnConfig(), rig.manager, playersAt(), nil)
	loop.Sweep(context.Background())

	assert.True(t, far.IsAlive())
}
