package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/horde/internal/model"
)

const sampleContent = `
archetypes:
  - id: ghoul
    name: Ghoul
    bounds_radius: 0.5
    base_health: 40
    base_damage: 6
    base_speed: 3.5
  - id: brute
    base_health: 120
    base_damage: 15
    base_speed: 2
  - id: ghoul
    base_health: 1
  - id: ghost
    base_health: 0
waves:
  - name: opening
    spawn_interval: 1s
    time_until_next_wave: 5s
    entries:
      - {archetype: ghoul, count: 3}
  - spawn_interval: 500ms
    time_until_next_wave: 8s
    entries:
      - {archetype: ghoul, count: 4}
      - {archetype: brute, count: 1}
  - name: broken
    spawn_interval: 0s
    time_until_next_wave: 1s
    entries:
      - {archetype: ghoul, count: 1}
obstacles:
  - center: [10, 0, 0]
    half_extents: [2, 2, 2]
  - center: [0, 0, 10]
    half_extents: [1, 1, 1]
    trigger: true
  - center: [0, 0, 0]
    half_extents: [0, 1, 1]
`

func TestLoadContent(t *testing.T) {
	content, err := LoadContent(writeFile(t, "waves.yaml", sampleContent))
	require.NoError(t, err)

	require.Len(t, content.Archetypes, 2, "duplicate and zero-health archetypes are skipped")
	assert.Equal(t, model.Archetype{
		ID: "ghoul", Name: "Ghoul", BoundsRadius: 0.5, BaseHealth: 40, BaseDamage: 6, BaseSpeed: 3.5,
	}, content.Archetypes["ghoul"])
	assert.Equal(t, "brute", content.Archetypes["brute"].Name, "name falls back to id")

	require.Len(t, content.Waves, 2, "wave with zero interval is skipped")
	assert.Equal(t, "opening", content.Waves[0].Name)
	assert.Equal(t, time.Second, content.Waves[0].SpawnInterval)
	assert.Equal(t, 5*time.Second, content.Waves[0].TimeUntilNextWave)
	assert.Equal(t, "wave-2", content.Waves[1].Name)
	assert.Equal(t, []model.WaveEntry{{ArchetypeID: "ghoul", BaseCount: 4}, {ArchetypeID: "brute", BaseCount: 1}}, content.Waves[1].Entries)

	require.Len(t, content.Obstacles, 2)
	geo := content.Geometry(8)
	assert.Equal(t, 2, geo.Count())
	assert.True(t, geo.OverlapSphere(model.NewVec3(9, 0, 0), 0.5))
	assert.False(t, geo.OverlapSphere(model.NewVec3(0, 0, 10), 0.5), "triggers never block")
}

func TestLoadContent_Errors(t *testing.T) {
	_, err := LoadContent(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadContent(writeFile(t, "dur.yaml", `
archetypes: [{id: a, base_health: 1}]
waves: [{spawn_interval: soon, time_until_next_wave: 1s}]
`))
	assert.Error(t, err, "bad duration")

	_, err = LoadContent(writeFile(t, "empty.yaml", "waves: []\n"))
	assert.ErrorIs(t, err, ErrNoArchetypes)

	content, err := LoadContent(writeFile(t, "nowaves.yaml", "archetypes: [{id: a, base_health: 1}]\n"))
	assert.ErrorIs(t, err, ErrNoWaves)
	assert.Len(t, content.Archetypes, 1)
}

func TestShippedContentLoads(t *testing.T) {
	content, err := LoadContent(filepath.Join("..", "..", "config", "waves.yaml"))
	require.NoError(t, err)

	assert.Len(t, content.Archetypes, 3)
	assert.Len(t, content.Waves, 3)
	assert.Equal(t, 13, content.Waves[2].TotalBase())
	assert.Equal(t, 750*time.Millisecond, content.Waves[1].SpawnInterval)

	geo := content.Geometry(16)
	assert.Equal(t, 3, geo.Count())
	assert.True(t, geo.OverlapSphere(model.NewVec3(25, 0, 0), 1))
	assert.False(t, geo.OverlapSphere(model.NewVec3(0, 0, -25), 0.5), "triggers never block")
}

func TestShippedServerConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "horde.yaml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Spawn, cfg.Spawn)
	assert.Equal(t, def.Despawn, cfg.Despawn)
	assert.Equal(t, def.Evolution, cfg.Evolution)
	assert.NotEmpty(t, cfg.Replication.Key)
	assert.Greater(t, cfg.Difficulty.Max, 1.0)
}
