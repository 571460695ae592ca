package authority

import "github.com/udisondev/horde/internal/model"

// DespawnReason tells observers why an enemy went away.
type DespawnReason uint8

const (
	ReasonDeath DespawnReason = iota + 1
	ReasonDistance
	ReasonReset
)

func (r DespawnReason) String() string {
	switch r {
	case ReasonDeath:
		return "death"
	case ReasonDistance:
		return "distance"
	case ReasonReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Command is a replication event emitted by the authoritative process.
type Command interface {
	command()
}

// RegisterCommand announces an archetype before its first spawn.
type RegisterCommand struct {
	Archetype model.Archetype
}

// SpawnCommand announces a new enemy.
type SpawnCommand struct {
	Handle      model.EntityHandle
	ArchetypeID string
	Position    model.Vec3
	Genes       model.EnemyGenes
}

// DespawnCommand announces an enemy removal.
type DespawnCommand struct {
	Handle model.EntityHandle
	Reason DespawnReason
}

// WaveAdvancedCommand announces the current wave index.
type WaveAdvancedCommand struct {
	Index int
}

func (RegisterCommand) command()     {}
func (SpawnCommand) command()        {}
func (DespawnCommand) command()      {}
func (WaveAdvancedCommand) command() {}
