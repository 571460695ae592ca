package replication

import (
	"errors"
	"fmt"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/model"
	"github.com/udisondev/horde/internal/packet"
)

// Downstream opcodes (host to observers).
const (
	OpRegister     byte = 0x01
	OpSpawn        byte = 0x02
	OpDespawn      byte = 0x03
	OpWaveAdvanced byte = 0x04
)

// Upstream opcodes (observers to host).
const (
	OpPlayerState byte = 0x10
	OpPlayerLeft  byte = 0x11
	OpEnemyHit    byte = 0x12
	OpEnemyKilled byte = 0x13
)

var (
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrChecksum      = errors.New("frame checksum mismatch")
)

// Upstream is a message an observer sends to the host.
type Upstream interface {
	upstream()
}

// PlayerStateMsg reports a player's position and downed flag.
type PlayerStateMsg struct {
	PlayerID string
	Position model.Vec3
	Downed   bool
}

// PlayerLeftMsg reports a disconnected player.
type PlayerLeftMsg struct {
	PlayerID string
}

// EnemyHitMsg reports damage an enemy dealt to a player.
type EnemyHitMsg struct {
	Handle model.EntityHandle
	Amount float64
}

// EnemyKilledMsg reports a combat death.
type EnemyKilledMsg struct {
	Handle      model.EntityHandle
	DamageDealt float64
	TimeAlive   float64
}

func (PlayerStateMsg) upstream() {}
func (PlayerLeftMsg) upstream()  {}
func (EnemyHitMsg) upstream()    {}
func (EnemyKilledMsg) upstream() {}

// EncodeCommand appends a downstream command to w.
func EncodeCommand(w *packet.Writer, cmd authority.Command) error {
	switch c := cmd.(type) {
	case authority.RegisterCommand:
		_ = w.WriteByte(OpRegister)
		a := c.Archetype
		w.WriteString(a.ID)
		w.WriteString(a.Name)
		w.WriteFloat64(a.BoundsRadius)
		w.WriteFloat64(a.BaseHealth)
		w.WriteFloat64(a.BaseDamage)
		w.WriteFloat64(a.BaseSpeed)

	case authority.SpawnCommand:
		_ = w.WriteByte(OpSpawn)
		w.WriteUint32(uint32(c.Handle))
		w.WriteString(c.ArchetypeID)
		writeVec3(w, c.Position)
		writeGenes(w, c.Genes)

	case authority.DespawnCommand:
		_ = w.WriteByte(OpDespawn)
		w.WriteUint32(uint32(c.Handle))
		_ = w.WriteByte(byte(c.Reason))

	case authority.WaveAdvancedCommand:
		_ = w.WriteByte(OpWaveAdvanced)
		w.WriteUint32(uint32(c.Index))

	default:
		return fmt.Errorf("encoding %T: unsupported command", cmd)
	}
	return nil
}

// DecodeCommand parses one downstream payload. Trailing padding is ignored.
func DecodeCommand(payload []byte) (authority.Command, error) {
	r := packet.NewReader(payload)
	op, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading opcode: %w", err)
	}

	switch op {
	case OpRegister:
		var a model.Archetype
		if a.ID, err = r.ReadString(); err != nil {
			return nil, fmt.Errorf("decoding register: %w", err)
		}
		if a.Name, err = r.ReadString(); err != nil {
			return nil, fmt.Errorf("decoding register: %w", err)
		}
		f, err := readFloats(r, 4)
		if err != nil {
			return nil, fmt.Errorf("decoding register: %w", err)
		}
		a.BoundsRadius, a.BaseHealth, a.BaseDamage, a.BaseSpeed = f[0], f[1], f[2], f[3]
		return authority.RegisterCommand{Archetype: a}, nil

	case OpSpawn:
		h, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("decoding spawn: %w", err)
		}
		id, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("decoding spawn: %w", err)
		}
		f, err := readFloats(r, 6)
		if err != nil {
			return nil, fmt.Errorf("decoding spawn: %w", err)
		}
		return authority.SpawnCommand{
			Handle:      model.EntityHandle(h),
			ArchetypeID: id,
			Position:    model.NewVec3(f[0], f[1], f[2]),
			Genes:       model.EnemyGenes{Health: f[3], Damage: f[4], Speed: f[5]},
		}, nil

	case OpDespawn:
		h, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("decoding despawn: %w", err)
		}
		reason, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("decoding despawn: %w", err)
		}
		return authority.DespawnCommand{Handle: model.EntityHandle(h), Reason: authority.DespawnReason(reason)}, nil

	case OpWaveAdvanced:
		idx, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("decoding wave advanced: %w", err)
		}
		return authority.WaveAdvancedCommand{Index: int(idx)}, nil

	default:
		return nil, fmt.Errorf("downstream 0x%02X: %w", op, ErrUnknownOpcode)
	}
}

// EncodeUpstream appends an upstream message to w.
func EncodeUpstream(w *packet.Writer, msg Upstream) error {
	switch m := msg.(type) {
	case PlayerStateMsg:
		_ = w.WriteByte(OpPlayerState)
		w.WriteString(m.PlayerID)
		writeVec3(w, m.Position)
		w.WriteBool(m.Downed)

	case PlayerLeftMsg:
		_ = w.WriteByte(OpPlayerLeft)
		w.WriteString(m.PlayerID)

	case EnemyHitMsg:
		_ = w.WriteByte(OpEnemyHit)
		w.WriteUint32(uint32(m.Handle))
		w.WriteFloat64(m.Amount)

	case EnemyKilledMsg:
		_ = w.WriteByte(OpEnemyKilled)
		w.WriteUint32(uint32(m.Handle))
		w.WriteFloat64(m.DamageDealt)
		w.WriteFloat64(m.TimeAlive)

	default:
		return fmt.Errorf("encoding %T: unsupported upstream message", msg)
	}
	return nil
}

// DecodeUpstream parses one upstream payload. Trailing padding is ignored.
func DecodeUpstream(payload []byte) (Upstream, error) {
	r := packet.NewReader(payload)
	op, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading opcode: %w", err)
	}

	switch op {
	case OpPlayerState:
		id, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("decoding player state: %w", err)
		}
		f, err := readFloats(r, 3)
		if err != nil {
			return nil, fmt.Errorf("decoding player state: %w", err)
		}
		downed, err := r.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("decoding player state: %w", err)
		}
		return PlayerStateMsg{PlayerID: id, Position: model.NewVec3(f[0], f[1], f[2]), Downed: downed}, nil

	case OpPlayerLeft:
		id, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("decoding player left: %w", err)
		}
		return PlayerLeftMsg{PlayerID: id}, nil

	case OpEnemyHit:
		h, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("decoding enemy hit: %w", err)
		}
		amount, err := r.ReadFloat64()
		if err != nil {
			return nil, fmt.Errorf("decoding enemy hit: %w", err)
		}
		return EnemyHitMsg{Handle: model.EntityHandle(h), Amount: amount}, nil

	case OpEnemyKilled:
		h, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("decoding enemy killed: %w", err)
		}
		f, err := readFloats(r, 2)
		if err != nil {
			return nil, fmt.Errorf("decoding enemy killed: %w", err)
		}
		return EnemyKilledMsg{Handle: model.EntityHandle(h), DamageDealt: f[0], TimeAlive: f[1]}, nil

	default:
		return nil, fmt.Errorf("upstream 0x%02X: %w", op, ErrUnknownOpcode)
	}
}

func writeVec3(w *packet.Writer, v model.Vec3) {
	w.WriteFloat64(v.X)
	w.WriteFloat64(v.Y)
	w.WriteFloat64(v.Z)
}

func writeGenes(w *packet.Writer, g model.EnemyGenes) {
	w.WriteFloat64(g.Health)
	w.WriteFloat64(g.Damage)
	w.WriteFloat64(g.Speed)
}

func readFloats(r *packet.Reader, n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := r.ReadFloat64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
