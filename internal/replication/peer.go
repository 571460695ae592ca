package replication

import (
	"log/slog"
	"net"
	"sync"
)

// maxWSMessage lets one websocket message carry a whole frame.
const maxWSMessage = 1 << 16

type peer struct {
	id     uint64
	conn   net.Conn
	remote string
	send   chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// player IDs this observer reported; read loop only
	players map[string]struct{}
}

func newPeer(id uint64, conn net.Conn, remote string, queue int) *peer {
	return &peer{
		id:      id,
		conn:    conn,
		remote:  remote,
		send:    make(chan []byte, queue),
		done:    make(chan struct{}),
		players: make(map[string]struct{}),
	}
}

// enqueue never blocks the broadcaster: a peer that cannot keep up is dropped.
func (p *peer) enqueue(frame []byte) {
	select {
	case <-p.done:
	case p.send <- frame:
	default:
		slog.Warn("observer send queue full, disconnecting", "remote", p.remote, "queued", len(p.send))
		p.close()
	}
}

func (p *peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case frame := <-p.send:
			if _, err := p.conn.Write(frame); err != nil {
				slog.Warn("observer write failed", "remote", p.remote, "error", err)
				p.close()
				return
			}
		}
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}
