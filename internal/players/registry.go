package players

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/udisondev/horde/internal/model"
)

// Registry tracks connected players as seen by the authoritative process.
// Writers are the replication hub (remote players) and the host's local input.
type Registry struct {
	players sync.Map     // map[string]*model.PlayerState, playerID → state
	count   atomic.Int32 // cached count of players (O(1) access)
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Upsert stores the player's latest position, adding the player if unknown.
func (r *Registry) Upsert(id string, position model.Vec3, downed bool) {
	state := &model.PlayerState{ID: id, Position: position, Downed: downed}
	if _, loaded := r.players.Swap(id, state); !loaded {
		r.count.Add(1)
		slog.Info("player joined", "playerID", id)
	}
}

// SetDowned flags an existing player as incapacitated or recovered.
// A player removed concurrently stays removed.
func (r *Registry) SetDowned(id string, downed bool) bool {
	for {
		value, ok := r.players.Load(id)
		if !ok {
			return false
		}
		next := *value.(*model.PlayerState)
		next.Downed = downed
		if r.players.CompareAndSwap(id, value, &next) {
			return true
		}
	}
}

// Remove drops a disconnected player
func (r *Registry) Remove(id string) {
	if _, ok := r.players.LoadAndDelete(id); !ok {
		return
	}
	r.count.Add(-1)
	slog.Info("player left", "playerID", id)
}

// ConnectedPlayerCount returns number of connected players (O(1) cached count)
func (r *Registry) ConnectedPlayerCount() int {
	return int(r.count.Load())
}

// PlayerSnapshot returns an immutable copy of all players, ordered by ID.
func (r *Registry) PlayerSnapshot() model.PlayerSnapshot {
	states := make([]model.PlayerState, 0, r.ConnectedPlayerCount())
	r.players.Range(func(_, value any) bool {
		states = append(states, *value.(*model.PlayerState))
		return true
	})
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return model.NewPlayerSnapshot(states)
}
