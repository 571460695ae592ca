package spawn

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/model"
)

var (
	ghoul  = model.Archetype{ID: "ghoul", Name: "Ghoul", BoundsRadius: 1, BaseHealth: 30, BaseDamage: 4, BaseSpeed: 3}
	wraith = model.Archetype{ID: "wraith", Name: "Wraith", BoundsRadius: 1.5, BaseHealth: 20, BaseDamage: 8, BaseSpeed: 5}
)

// staticPlayers is a fixed player source
type staticPlayers struct {
	mu    sync.Mutex
	snap  model.PlayerSnapshot
	count int
}

func playersAt(positions ...model.Vec3) *staticPlayers {
	states := make([]model.PlayerState, len(positions))
	for i, p := range positions {
		states[i] = model.PlayerState{ID: string(rune('a' + i)), Position: p}
	}
	return &staticPlayers{snap: model.NewPlayerSnapshot(states), count: len(positions)}
}

func (s *staticPlayers) PlayerSnapshot() model.PlayerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *staticPlayers) ConnectedPlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

type fixedGenes model.EnemyGenes

func (g fixedGenes) NextGenes() model.EnemyGenes {
	return model.EnemyGenes(g)
}

// alphaRecorder records the last alpha per enemy
type alphaRecorder struct {
	mu    sync.Mutex
	alpha map[model.EntityHandle]float64
}

func newAlphaRecorder() *alphaRecorder {
	return &alphaRecorder{alpha: make(map[model.EntityHandle]float64)}
}

func (a *alphaRecorder) SetAlpha(h model.EntityHandle, alpha float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alpha[h] = alpha
}

func (a *alphaRecorder) get(h model.EntityHandle) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.alpha[h]
	return v, ok
}

type testRig struct {
	manager *Manager
	spawner *authority.Spawner
	players *staticPlayers
}

func newTestRig(t *testing.T, mode authority.Mode, players *staticPlayers) *testRig {
	t.Helper()

	spawner, err := authority.NewSpawner(mode, authority.Config{QueueSize: 1024})
	require.NoError(t, err)

	solver := NewSolver(DefaultSolverConfig(), nil, newRand(1))
	validator := NewValidator(DefaultSafetyConfig(), nil, solver)
	balancer := NewBalancer(DefaultBalancerConfig(), newRand(2))

	return &testRig{
		manager: NewManager(spawner, fixedGenes(model.DefaultGenes()), players, balancer, validator),
		spawner: spawner,
		players: players,
	}
}

func drainCommands(ch <-chan authority.Command) []authority.Command {
	var out []authority.Command
	for {
		select {
		case c := <-ch:
			out = append(out, c)
		default:
			return out
		}
	}
}
