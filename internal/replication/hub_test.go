package replication

import (
	"context"
	"math"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/model"
	"github.com/udisondev/horde/internal/players"
)

var ghoul = model.Archetype{ID: "ghoul", Name: "Ghoul", BoundsRadius: 0.5, BaseHealth: 40, BaseDamage: 6, BaseSpeed: 3}

type combatRecorder struct {
	mu     sync.Mutex
	hits   []EnemyHitMsg
	deaths []EnemyKilledMsg
}

func (r *combatRecorder) OnEnemyDamage(h model.EntityHandle, amount float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = append(r.hits, EnemyHitMsg{Handle: h, Amount: amount})
}

func (r *combatRecorder) OnEnemyDied(h model.EntityHandle, dmg, alive float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deaths = append(r.deaths, EnemyKilledMsg{Handle: h, DamageDealt: dmg, TimeAlive: alive})
}

func (r *combatRecorder) deathCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deaths)
}

type hostRig struct {
	spawner  *authority.Spawner
	hub      *Hub
	registry *players.Registry
	combat   *combatRecorder
	cipher   *Cipher
	addr     string
}

func startHost(t *testing.T) *hostRig {
	t.Helper()

	spawner, err := authority.NewSpawner(authority.ModeHost, authority.Config{QueueSize: 64})
	require.NoError(t, err)

	rig := &hostRig{
		spawner:  spawner,
		registry: players.NewRegistry(),
		combat:   &combatRecorder{},
		cipher:   newTestCipher(t),
	}
	rig.hub, err = NewHub(DefaultHubConfig(), rig.cipher, spawner, rig.registry, rig.combat)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	rig.addr = ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Go(func() { _ = rig.hub.Run(ctx) })
	wg.Go(func() { _ = rig.hub.ServeTCP(ctx, ln) })
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return rig
}

func connect(t *testing.T, rig *hostRig) *Client {
	t.Helper()

	c, err := Dial(context.Background(), rig.addr, rig.cipher, authority.NewMirror())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return rig.hub.Observers() > 0 }, time.Second, 5*time.Millisecond)
	return c
}

func TestHub_ObserverMirrorsSpawns(t *testing.T) {
	rig := startHost(t)
	client := connect(t, rig)

	a, err := rig.spawner.TrySpawn(ghoul, model.NewVec3(30, 0, 0), model.DefaultGenes())
	require.NoError(t, err)
	b, err := rig.spawner.TrySpawn(ghoul, model.NewVec3(-30, 0, 0), model.EnemyGenes{Health: 2, Damage: 1, Speed: 1.5})
	require.NoError(t, err)
	rig.spawner.Despawn(a, authority.ReasonDeath)
	rig.spawner.WaveAdvanced(1)

	mirror := client.Mirror()
	require.Eventually(t, func() bool { return mirror.WaveIndex() == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, mirror.Len())
	assert.Equal(t, 1, mirror.Archetypes())
	got, ok := mirror.Enemy(b.Handle())
	require.True(t, ok)
	assert.Equal(t, b.Genes(), got.Genes)
	assert.Equal(t, b.Position(), got.Position)
}

func TestHub_LateJoinerGetsSnapshot(t *testing.T) {
	rig := startHost(t)
	first := connect(t, rig)

	e, err := rig.spawner.TrySpawn(ghoul, model.NewVec3(0, 0, 25), model.DefaultGenes())
	require.NoError(t, err)
	rig.spawner.WaveAdvanced(2)
	require.Eventually(t, func() bool { return first.Mirror().WaveIndex() == 2 }, 2*time.Second, 5*time.Millisecond)

	late, err := Dial(context.Background(), rig.addr, rig.cipher, authority.NewMirror())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = late.Run(ctx) }()

	require.Eventually(t, func() bool { return late.Mirror().Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	_, ok := late.Mirror().Enemy(e.Handle())
	assert.True(t, ok)
	assert.Eventually(t, func() bool { return late.Mirror().WaveIndex() == 2 }, time.Second, 5*time.Millisecond)
}

func TestHub_UpstreamReachesHost(t *testing.T) {
	rig := startHost(t)
	client := connect(t, rig)

	require.NoError(t, client.Send(PlayerStateMsg{PlayerID: "remote", Position: model.NewVec3(4, 0, 4)}))
	require.NoError(t, client.Send(EnemyHitMsg{Handle: 3, Amount: 8}))
	require.NoError(t, client.Send(EnemyKilledMsg{Handle: 3, DamageDealt: 8, TimeAlive: 2}))

	require.Eventually(t, func() bool { return rig.combat.deathCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rig.registry.ConnectedPlayerCount())
	assert.Equal(t, []EnemyHitMsg{{Handle: 3, Amount: 8}}, rig.combat.hits)

	// disconnecting drops the players the observer reported
	require.NoError(t, client.Close())
	assert.Eventually(t, func() bool { return rig.registry.ConnectedPlayerCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_DropsNonFiniteReports(t *testing.T) {
	rig := startHost(t)
	client := connect(t, rig)

	require.NoError(t, client.Send(PlayerStateMsg{PlayerID: "bad", Position: model.NewVec3(math.NaN(), 0, 0)}))
	require.NoError(t, client.Send(EnemyHitMsg{Handle: 3, Amount: math.Inf(1)}))
	require.NoError(t, client.Send(EnemyKilledMsg{Handle: 3, DamageDealt: math.NaN(), TimeAlive: 1}))
	require.NoError(t, client.Send(EnemyKilledMsg{Handle: 4, DamageDealt: 2, TimeAlive: math.Inf(-1)}))
	require.NoError(t, client.Send(EnemyKilledMsg{Handle: 5, DamageDealt: 2, TimeAlive: 1}))

	// frames are dispatched in order, so the last valid report marks the end
	require.Eventually(t, func() bool { return rig.combat.deathCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	rig.combat.mu.Lock()
	defer rig.combat.mu.Unlock()
	assert.Empty(t, rig.combat.hits)
	assert.Equal(t, []EnemyKilledMsg{{Handle: 5, DamageDealt: 2, TimeAlive: 1}}, rig.combat.deaths)
	assert.Zero(t, rig.registry.ConnectedPlayerCount())
}

func TestHub_Websocket(t *testing.T) {
	rig := startHost(t)

	srv := httptest.NewServer(rig.hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := DialWS(context.Background(), url, rig.cipher, authority.NewMirror())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	require.Eventually(t, func() bool { return rig.hub.Observers() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err = rig.spawner.TrySpawn(ghoul, model.NewVec3(10, 0, 10), model.DefaultGenes())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return client.Mirror().Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, client.Send(PlayerStateMsg{PlayerID: "ws-player"}))
	assert.Eventually(t, func() bool { return rig.registry.ConnectedPlayerCount() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestNewHub_RequiresReplicatingSource(t *testing.T) {
	single, err := authority.NewSpawner(authority.ModeSingle, authority.Config{})
	require.NoError(t, err)

	_, err = NewHub(DefaultHubConfig(), newTestCipher(t), single, nil, nil)
	assert.Error(t, err)
}
