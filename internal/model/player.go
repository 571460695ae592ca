package model

// PlayerState is one player's position as seen by the authoritative process.
type PlayerState struct {
	ID       string
	Position Vec3
	Downed   bool
}

// PlayerSnapshot is an immutable copy of player states taken once per spawn attempt.
type PlayerSnapshot struct {
	players []PlayerState
}

// NewPlayerSnapshot copies states into a new snapshot.
func NewPlayerSnapshot(states []PlayerState) PlayerSnapshot {
	cp := make([]PlayerState, len(states))
	copy(cp, states)
	return PlayerSnapshot{players: cp}
}

// Len returns the number of players including downed ones.
func (s PlayerSnapshot) Len() int {
	return len(s.players)
}

// Players returns a copy of all player states.
func (s PlayerSnapshot) Players() []PlayerState {
	cp := make([]PlayerState, len(s.players))
	copy(cp, s.players)
	return cp
}

// Active returns positions of players that are not downed (combat targets).
func (s PlayerSnapshot) Active() []Vec3 {
	out := make([]Vec3, 0, len(s.players))
	for _, p := range s.players {
		if !p.Downed {
			out = append(out, p.Position)
		}
	}
	return out
}

// All returns positions of every player, downed included.
// Used for spawn-distance safety and despawn radius checks.
func (s PlayerSnapshot) All() []Vec3 {
	out := make([]Vec3, len(s.players))
	for i, p := range s.players {
		out[i] = p.Position
	}
	return out
}
