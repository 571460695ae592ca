package replication

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/model"
	"github.com/udisondev/horde/internal/packet"
)

// CommandSource is the authoritative spawner's outbound command stream.
type CommandSource interface {
	Commands() <-chan authority.Command
}

// PlayerSink receives player state reported by observers.
type PlayerSink interface {
	Upsert(id string, position model.Vec3, downed bool)
	Remove(id string)
}

// CombatSink receives combat events reported by observers.
type CombatSink interface {
	OnEnemyDamage(handle model.EntityHandle, amount float64)
	OnEnemyDied(handle model.EntityHandle, damageDealt, timeAlive float64)
}

// HubConfig configures a Hub.
type HubConfig struct {
	// SendQueueSize bounds frames buffered per observer beyond its join snapshot
	SendQueueSize int
	// InsecureSkipVerify disables the websocket origin check
	InsecureSkipVerify bool
}

// DefaultHubConfig returns the default hub configuration
func DefaultHubConfig() HubConfig {
	return HubConfig{SendQueueSize: 256}
}

// Hub fans authoritative commands out to every connected observer and feeds
// observer reports back into the host. TCP and websocket peers share one framing.
type Hub struct {
	cfg      HubConfig
	cipher   *Cipher
	commands <-chan authority.Command
	players  PlayerSink
	combat   CombatSink

	mu     sync.Mutex
	state  *authority.Mirror
	peers  map[uint64]*peer
	nextID uint64

	observers atomic.Int32
}

// NewHub creates a hub over a replicating spawner.
func NewHub(cfg HubConfig, cipher *Cipher, source CommandSource, players PlayerSink, combat CombatSink) (*Hub, error) {
	if cipher == nil {
		return nil, fmt.Errorf("creating hub: cipher is required")
	}
	commands := source.Commands()
	if commands == nil {
		return nil, fmt.Errorf("creating hub: source does not replicate")
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = DefaultHubConfig().SendQueueSize
	}
	return &Hub{
		cfg:      cfg,
		cipher:   cipher,
		commands: commands,
		players:  players,
		combat:   combat,
		state:    authority.NewMirror(),
		peers:    make(map[uint64]*peer),
	}, nil
}

// Observers returns the number of connected observers
func (h *Hub) Observers() int {
	return int(h.observers.Load())
}

// Run drains the command stream until ctx is canceled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) error {
	slog.Info("replication hub started")
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			slog.Info("replication hub stopping")
			return nil
		case cmd, ok := <-h.commands:
			if !ok {
				return nil
			}
			h.broadcast(cmd)
		}
	}
}

func (h *Hub) broadcast(cmd authority.Command) {
	frame, err := h.frame(cmd)
	if err != nil {
		slog.Error("replication encode failed", "command", fmt.Sprintf("%T", cmd), "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.state.Apply(cmd); err != nil {
		slog.Warn("replication state diverged", "error", err)
	}
	for _, p := range h.peers {
		p.enqueue(frame)
	}
}

func (h *Hub) frame(cmd authority.Command) ([]byte, error) {
	w := packet.Get()
	defer w.Put()

	if err := EncodeCommand(w, cmd); err != nil {
		return nil, err
	}
	return sealFrame(h.cipher, w.Bytes())
}

// ServeTCP accepts observers on ln until ctx is canceled.
func (h *Hub) ServeTCP(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("replication listener started", "address", ln.Addr())

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			slog.Error("failed to accept observer connection", "error", err)
			continue
		}
		wg.Go(func() {
			h.serveConn(ctx, conn, conn.RemoteAddr().String())
		})
	}
}

// ServeHTTP upgrades the request to a websocket and serves it as an observer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.cfg.InsecureSkipVerify,
	})
	if err != nil {
		slog.Error("failed to accept websocket observer", "remote", r.RemoteAddr, "error", err)
		return
	}
	c.SetReadLimit(maxWSMessage)

	ctx := r.Context()
	h.serveConn(ctx, websocket.NetConn(ctx, c, websocket.MessageBinary), r.RemoteAddr)
}

// serveConn sends the join snapshot, then relays frames until either side closes.
func (h *Hub) serveConn(ctx context.Context, conn net.Conn, remote string) {
	p, err := h.join(conn, remote)
	if err != nil {
		slog.Error("observer join failed", "remote", remote, "error", err)
		conn.Close()
		return
	}
	defer h.leave(p)

	go func() {
		select {
		case <-ctx.Done():
			p.close()
		case <-p.done:
		}
	}()
	go p.writeLoop()

	buf := NewFrameBuffer()
	for {
		payload, err := ReadFrame(conn, h.cipher, buf)
		if err != nil {
			if !isClosed(err) {
				slog.Warn("observer read failed", "remote", remote, "error", err)
			}
			return
		}

		msg, err := DecodeUpstream(payload)
		if err != nil {
			slog.Warn("observer sent bad frame", "remote", remote, "error", err)
			continue
		}
		h.dispatch(p, msg)
	}
}

func (h *Hub) join(conn net.Conn, remote string) (*peer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := h.state.Snapshot()
	p := newPeer(h.nextID, conn, remote, len(snapshot)+h.cfg.SendQueueSize)
	h.nextID++

	for _, cmd := range snapshot {
		frame, err := h.frame(cmd)
		if err != nil {
			return nil, fmt.Errorf("encoding snapshot: %w", err)
		}
		p.enqueue(frame)
	}
	h.peers[p.id] = p

	n := h.observers.Add(1)
	slog.Info("observer connected",
		"remote", remote,
		"snapshot", len(snapshot),
		"observers", n)
	return p, nil
}

func (h *Hub) leave(p *peer) {
	p.close()

	h.mu.Lock()
	delete(h.peers, p.id)
	h.mu.Unlock()

	// players is touched by the read loop only, which has returned
	if h.players != nil {
		for id := range p.players {
			h.players.Remove(id)
		}
	}

	n := h.observers.Add(-1)
	slog.Info("observer disconnected", "remote", p.remote, "observers", n)
}

func (h *Hub) dispatch(p *peer, msg Upstream) {
	if !finite(msg) {
		slog.Warn("observer report dropped (non-finite value)",
			"remote", p.remote,
			"report", fmt.Sprintf("%T", msg))
		return
	}

	switch m := msg.(type) {
	case PlayerStateMsg:
		if h.players == nil {
			return
		}
		p.players[m.PlayerID] = struct{}{}
		h.players.Upsert(m.PlayerID, m.Position, m.Downed)

	case PlayerLeftMsg:
		if h.players == nil {
			return
		}
		delete(p.players, m.PlayerID)
		h.players.Remove(m.PlayerID)

	case EnemyHitMsg:
		if h.combat != nil {
			h.combat.OnEnemyDamage(m.Handle, m.Amount)
		}

	case EnemyKilledMsg:
		if h.combat != nil {
			h.combat.OnEnemyDied(m.Handle, m.DamageDealt, m.TimeAlive)
		}
	}
}

// finite reports whether every float in an upstream report is a finite number.
func finite(msg Upstream) bool {
	switch m := msg.(type) {
	case PlayerStateMsg:
		return m.Position.IsFinite()
	case EnemyHitMsg:
		return model.IsFinite(m.Amount)
	case EnemyKilledMsg:
		return model.IsFinite(m.DamageDealt, m.TimeAlive)
	default:
		return true
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.peers {
		p.close()
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		websocket.CloseStatus(err) != -1
}
