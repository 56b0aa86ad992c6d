package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/roach88/emporium/internal/codec"
)

// helloTimeout is how long a new connection has to name its channel.
const helloTimeout = 5 * time.Second

// writeTimeout bounds a single forwarded frame. A peer that cannot keep up
// is disconnected rather than stalling the hub.
const writeTimeout = 10 * time.Second

// hello is the first frame a client sends.
type hello struct {
	Channel string `cbor:"channel"`
}

// welcome is the hub's reply to hello.
type welcome struct {
	OK    bool   `cbor:"ok"`
	Error string `cbor:"error,omitempty"`
}

// Hub fans frames out between connections on a Unix socket. Each frame a
// connection sends is forwarded to every other connection subscribed to
// the same channel.
type Hub struct {
	socketPath string
	logger     *slog.Logger

	mu    sync.Mutex
	conns map[*hubConn]struct{}
	ready chan struct{}

	activeConnections sync.WaitGroup
}

type hubConn struct {
	net.Conn
	channel string
	writeMu sync.Mutex
}

// NewHub creates a hub that will listen on socketPath.
func NewHub(socketPath string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		socketPath: socketPath,
		logger:     logger,
		conns:      make(map[*hubConn]struct{}),
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the hub is accepting connections.
func (h *Hub) Ready() <-chan struct{} { return h.ready }

// Connections returns the number of registered connections.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Serve accepts connections until ctx is cancelled, then closes every
// connection and waits for their handlers to return.
//
// Any existing socket file at the configured path is removed before
// listening. The socket file is removed on return.
func (h *Hub) Serve(ctx context.Context) error {
	if err := os.Remove(h.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", h.socketPath, err)
	}

	listener, err := net.Listen("unix", h.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(h.socketPath)
	}()

	// Unblock Accept and connection reads when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
		h.closeAll()
	}()

	h.logger.Info("broadcast hub listening", "path", h.socketPath)
	close(h.ready)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			h.logger.Error("accept failed", "error", err)
			continue
		}

		h.activeConnections.Add(1)
		go func() {
			defer h.activeConnections.Done()
			h.handleConnection(ctx, conn)
		}()
	}

	h.activeConnections.Wait()
	h.logger.Info("broadcast hub stopped")
	return nil
}

func (h *Hub) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var hi hello
	if err := codec.ReadFrame(conn, &hi); err != nil {
		h.logger.Debug("hello failed", "error", err)
		return
	}
	if hi.Channel == "" {
		codec.WriteFrame(conn, welcome{Error: "missing channel name"})
		return
	}
	conn.SetReadDeadline(time.Time{})

	hc := &hubConn{Conn: conn, channel: hi.Channel}
	h.register(hc)
	defer h.unregister(hc)

	// A client blocks in Dial until the welcome arrives, so registration
	// has already happened when it starts posting.
	if err := hc.write(mustEncode(welcome{OK: true})); err != nil {
		return
	}
	if ctx.Err() != nil {
		return
	}

	for {
		frame, err := codec.ReadRaw(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				h.logger.Debug("read failed", "channel", hc.channel, "error", err)
			}
			return
		}
		h.fanout(hc, frame)
	}
}

func (h *Hub) register(hc *hubConn) {
	h.mu.Lock()
	h.conns[hc] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Debug("connection joined", "channel", hc.channel, "connections", n)
}

func (h *Hub) unregister(hc *hubConn) {
	h.mu.Lock()
	delete(h.conns, hc)
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Debug("connection left", "channel", hc.channel, "connections", n)
}

func (h *Hub) fanout(from *hubConn, frame []byte) {
	h.mu.Lock()
	targets := make([]*hubConn, 0, len(h.conns))
	for c := range h.conns {
		if c != from && c.channel == from.channel {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(frame); err != nil {
			h.logger.Warn("dropping slow or dead peer", "channel", c.channel, "error", err)
			c.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.Close()
	}
}

func (c *hubConn) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return codec.WriteRaw(c.Conn, frame)
}

func mustEncode(v any) []byte {
	frame, err := codec.EncodeFrame(v)
	if err != nil {
		panic("broadcast: encode control frame: " + err.Error())
	}
	return frame
}
