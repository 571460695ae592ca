package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/genetic"
	"github.com/udisondev/horde/internal/genetic/mocks"
	"github.com/udisondev/horde/internal/model"
	"github.com/udisondev/horde/internal/players"
	"github.com/udisondev/horde/internal/spawn"
)

var ghoul = model.Archetype{ID: "ghoul", Name: "Ghoul", BoundsRadius: 0.5, BaseHealth: 50, BaseDamage: 5, BaseSpeed: 3}

func newTestSession(t *testing.T, mode authority.Mode, waves ...model.Wave) (*Session, *players.Registry) {
	t.Helper()

	reg := players.NewRegistry()
	reg.Upsert("p1", model.Vec3{}, false)

	s, err := New(Options{
		Mode:       mode,
		Waves:      waves,
		Archetypes: map[string]model.Archetype{ghoul.ID: ghoul},
		Players:    reg,
		Despawn:    spawn.DefaultDespawnConfig(),
		QueueSize:  64,
		Seed:       42,
	})
	require.NoError(t, err)
	return s, reg
}

func oneWave(count int) model.Wave {
	return model.Wave{
		Name:              "opening",
		Entries:           []model.WaveEntry{{ArchetypeID: ghoul.ID, BaseCount: count}},
		SpawnInterval:     time.Second,
		TimeUntilNextWave: 2 * time.Second,
	}
}

func TestNew_ObserverIsRejected(t *testing.T) {
	_, err := New(Options{Mode: authority.ModeClient, Players: players.NewRegistry()})
	require.ErrorIs(t, err, authority.ErrNotAuthoritative)
}

func TestNew_RequiresPlayers(t *testing.T) {
	_, err := New(Options{Mode: authority.ModeSingle})
	require.Error(t, err)
}

func TestSession_TickDoesNothingUntilStarted(t *testing.T) {
	s, _ := newTestSession(t, authority.ModeSingle, oneWave(3))

	s.Tick(context.Background(), time.Hour)

	assert.False(t, s.Running())
	assert.Zero(t, s.Manager().Count())
	assert.Zero(t, s.Clock().Now())
}

func TestSession_StartSpawnsAndFiresHook(t *testing.T) {
	s, _ := newTestSession(t, authority.ModeSingle, oneWave(3))

	var spawned []model.EntityHandle
	s.SetSpawnedFunc(func(h model.EntityHandle, a model.Archetype, g model.EnemyGenes) {
		assert.Equal(t, ghoul.ID, a.ID)
		assert.True(t, g.Within(s.Engine().Config().MaxMultiplier))
		spawned = append(spawned, h)
	})

	s.RequestStart()
	s.RequestStart() // no-op while running
	require.True(t, s.Running())

	s.Tick(context.Background(), 0)
	assert.Len(t, spawned, 1)

	s.Tick(context.Background(), 2*time.Second)
	assert.Len(t, spawned, 3)
	assert.Equal(t, 3, s.Manager().Count())
	assert.Equal(t, 2*time.Second, s.Clock().Now())
}

func TestSession_StopKeepsEnemies(t *testing.T) {
	s, _ := newTestSession(t, authority.ModeSingle, oneWave(5))

	s.RequestStart()
	s.Tick(context.Background(), time.Second)
	before := s.Manager().Count()
	require.Positive(t, before)

	s.RequestStop()
	s.Tick(context.Background(), time.Hour)

	assert.False(t, s.Running())
	assert.Equal(t, before, s.Manager().Count())
	assert.Equal(t, spawn.SchedulerIdle, s.Scheduler().State())
}

func TestSession_ResetClearsEverything(t *testing.T) {
	s, _ := newTestSession(t, authority.ModeSingle, oneWave(2), oneWave(1))
	id := s.ID()

	s.RequestStart()
	s.Tick(context.Background(), 4*time.Second)
	require.Equal(t, 1, s.Scheduler().Index())
	s.OnEnemyDied(s.Manager().Enemies()[0].Handle(), 10, 4)
	require.Equal(t, 1, s.Engine().SampleCount())

	s.RequestReset()

	assert.False(t, s.Running())
	assert.NotEqual(t, id, s.ID())
	assert.Zero(t, s.Scheduler().Index())
	assert.Zero(t, s.Manager().Count())
	assert.Zero(t, s.Engine().SampleCount())
	assert.Zero(t, s.Engine().Generation())
	assert.Zero(t, s.Clock().Now())
}

func TestSession_DeathFeedsOneSample(t *testing.T) {
	s, _ := newTestSession(t, authority.ModeSingle, oneWave(1))
	s.RequestStart()
	s.Tick(context.Background(), 0)

	enemies := s.Manager().Enemies()
	require.Len(t, enemies, 1)
	h := enemies[0].Handle()

	s.OnEnemyDamage(h, 7)
	s.OnEnemyDamage(h, 3)
	assert.Equal(t, 10.0, enemies[0].DamageDealt())

	s.OnEnemyDied(h, 0, 0)
	s.OnEnemyDied(h, 0, 0)

	assert.Equal(t, 1, s.Engine().SampleCount())
	assert.Zero(t, s.Manager().Count())
	assert.Equal(t, model.EnemyRemoved, enemies[0].State())
}

func TestSession_DespawnNeverFeedsSamples(t *testing.T) {
	s, reg := newTestSession(t, authority.ModeSingle, oneWave(1))
	s.RequestStart()
	s.Tick(context.Background(), 0)
	require.Equal(t, 1, s.Manager().Count())

	// walk the only player far away so the enemy falls out of range
	reg.Upsert("p1", model.NewVec3(1000, 0, 0), false)
	s.Tick(context.Background(), 3*time.Second)
	s.Tick(context.Background(), time.Second)

	assert.Zero(t, s.Engine().SampleCount())
	assert.Equal(t, 1, s.Manager().Count(), "replacement keeps the population")
}

func TestSession_HostReplicatesWaveAdvance(t *testing.T) {
	s, _ := newTestSession(t, authority.ModeHost, oneWave(1), oneWave(1))

	var advanced []int
	s.SetWaveAdvancedFunc(func(i int) { advanced = append(advanced, i) })

	s.RequestStart()
	s.Tick(context.Background(), 3*time.Second)
	require.Equal(t, []int{1}, advanced)

	var waves []authority.WaveAdvancedCommand
	for {
		select {
		case cmd := <-s.Spawner().Commands():
			if w, ok := cmd.(authority.WaveAdvancedCommand); ok {
				waves = append(waves, w)
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, []authority.WaveAdvancedCommand{{Index: 1}}, waves)
}

func TestSession_RunStopsOnStop(t *testing.T) {
	s, _ := newTestSession(t, authority.ModeSingle, oneWave(1))

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), 5*time.Millisecond) }()

	s.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func feedSamples(s *Session, n int) {
	for range n {
		s.Engine().ReportFitness(s.Engine().NextGenes(), 4, 2)
	}
}

func TestSession_EvolvedHookMayReadID(t *testing.T) {
	s, _ := newTestSession(t, authority.ModeSingle, oneWave(1))

	var seen, fromHook []uuid.UUID
	s.SetEvolvedFunc(func(sessionID uuid.UUID, gen genetic.Generation) {
		seen = append(seen, sessionID)
		fromHook = append(fromHook, s.ID())
		assert.Equal(t, 1, gen.Number)
	})

	s.RequestStart()
	feedSamples(s, 5)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Tick(context.Background(), 31*time.Second)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tick blocked inside the evolved hook")
	}

	assert.Equal(t, []uuid.UUID{s.ID()}, seen)
	assert.Equal(t, seen, fromHook)
	assert.Equal(t, 1, s.Engine().Generation())
}

func TestSession_RecorderKeysGenerationsBySession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, _ := newTestSession(t, authority.ModeSingle, oneWave(1))
	store := mocks.NewMockGenerationStore(ctrl)
	rec := genetic.NewRecorder(store, 4)
	s.SetEvolvedFunc(func(sessionID uuid.UUID, gen genetic.Generation) {
		rec.Record(sessionID, gen)
	})

	s.RequestStart()
	feedSamples(s, 5)
	first := s.ID()
	s.Tick(context.Background(), 31*time.Second)

	s.RequestReset()
	s.RequestStart()
	feedSamples(s, 5)
	second := s.ID()
	require.NotEqual(t, first, second)
	s.Tick(context.Background(), 31*time.Second)

	gomock.InOrder(
		store.EXPECT().SaveGeneration(gomock.Any(), first, gomock.Any()).Return(nil),
		store.EXPECT().SaveGeneration(gomock.Any(), second, gomock.Any()).Return(nil),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.Run(ctx))
	assert.EqualValues(t, 2, rec.Saved())
}
