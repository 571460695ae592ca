package replication

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/coder/websocket"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/packet"
)

// Client is the observer side of replication: it folds host commands into a
// Mirror and reports local players and combat upstream.
type Client struct {
	conn   net.Conn
	cipher *Cipher
	mirror *authority.Mirror

	wmu sync.Mutex

	hookMu  sync.RWMutex
	applied func(authority.Command)
}

// Dial connects to a host's TCP replication listener.
func Dial(ctx context.Context, addr string, cipher *Cipher, mirror *authority.Mirror) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing host %s: %w", addr, err)
	}
	return newClient(conn, cipher, mirror), nil
}

// DialWS connects to a host's websocket endpoint (ws:// or wss:// URL).
func DialWS(ctx context.Context, url string, cipher *Cipher, mirror *authority.Mirror) (*Client, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing host %s: %w", url, err)
	}
	c.SetReadLimit(maxWSMessage)
	conn := websocket.NetConn(context.WithoutCancel(ctx), c, websocket.MessageBinary)
	return newClient(conn, cipher, mirror), nil
}

func newClient(conn net.Conn, cipher *Cipher, mirror *authority.Mirror) *Client {
	return &Client{conn: conn, cipher: cipher, mirror: mirror}
}

// Mirror returns the replicated state
func (c *Client) Mirror() *authority.Mirror { return c.mirror }

// SetAppliedFunc installs a hook fired after each command reaches the mirror.
func (c *Client) SetAppliedFunc(fn func(authority.Command)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.applied = fn
}

// Run applies host commands until ctx is canceled or the host disconnects.
func (c *Client) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-done:
		}
	}()

	slog.Info("replication client started", "host", c.conn.RemoteAddr())

	buf := NewFrameBuffer()
	for {
		payload, err := ReadFrame(c.conn, c.cipher, buf)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("replication client stopping")
				return nil
			}
			return fmt.Errorf("reading from host: %w", err)
		}

		cmd, err := DecodeCommand(payload)
		if err != nil {
			slog.Warn("host sent bad frame", "error", err)
			continue
		}
		if err := c.mirror.Apply(cmd); err != nil {
			slog.Warn("mirror apply failed", "error", err)
			continue
		}

		c.hookMu.RLock()
		hook := c.applied
		c.hookMu.RUnlock()
		if hook != nil {
			hook(cmd)
		}
	}
}

// Send reports one upstream message to the host.
func (c *Client) Send(msg Upstream) error {
	w := packet.Get()
	defer w.Put()

	if err := EncodeUpstream(w, msg); err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := WriteFrame(c.conn, c.cipher, w.Bytes()); err != nil {
		return fmt.Errorf("sending %T: %w", msg, err)
	}
	return nil
}

// Close disconnects from the host.
func (c *Client) Close() error {
	return c.conn.Close()
}
