package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/roach88/emporium/internal/codec"
	"github.com/roach88/emporium/internal/tabsync"
)

// Compile-time interface checks.
var (
	_ tabsync.Opener  = Dialer{}
	_ tabsync.Channel = (*Conn)(nil)
)

// Dialer opens hub channels. It is the cross-process tabsync.Opener.
type Dialer struct {
	SocketPath string
	Logger     *slog.Logger
}

// Open dials the hub and joins the named channel.
func (d Dialer) Open(ctx context.Context, name string) (tabsync.Channel, error) {
	return Dial(ctx, d.SocketPath, name, d.Logger)
}

// Conn is one endpoint connected to a Hub.
type Conn struct {
	conn    net.Conn
	channel string
	logger  *slog.Logger
	writeMu sync.Mutex

	mu      sync.Mutex
	handler func(tabsync.Message)
	closed  bool

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the hub at socketPath and joins channel. It returns
// after the hub has registered the connection.
func Dial(ctx context.Context, socketPath, channel string, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial hub %s: %w", socketPath, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(helloTimeout))
	}
	if err := codec.WriteFrame(conn, hello{Channel: channel}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}
	var w welcome
	if err := codec.ReadFrame(conn, &w); err != nil {
		conn.Close()
		return nil, fmt.Errorf("welcome: %w", err)
	}
	if !w.OK {
		conn.Close()
		return nil, fmt.Errorf("hub refused channel %q: %s", channel, w.Error)
	}
	conn.SetDeadline(time.Time{})

	return &Conn{
		conn:    conn,
		channel: channel,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Post writes msg to the hub.
func (c *Conn) Post(ctx context.Context, msg tabsync.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return tabsync.ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
	} else {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	if err := codec.WriteFrame(c.conn, msg); err != nil {
		return fmt.Errorf("post to %s: %w", c.channel, err)
	}
	return nil
}

// OnMessage sets the handler and starts reading. Frames that arrive
// before the first call stay buffered in the socket.
func (c *Conn) OnMessage(fn func(tabsync.Message)) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
	c.startOnce.Do(func() { go c.readLoop() })
}

// Done is closed when the read loop exits.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close disconnects from the hub and waits for the read loop to exit.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		err = c.conn.Close()

		started := true
		c.startOnce.Do(func() {
			started = false
			close(c.done)
		})
		if started {
			<-c.done
		}
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		var msg tabsync.Message
		if err := codec.ReadFrame(c.conn, &msg); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed && !errors.Is(err, io.EOF) {
				c.logger.Warn("hub read failed", "channel", c.channel, "error", err)
			}
			return
		}

		c.mu.Lock()
		fn := c.handler
		c.mu.Unlock()
		if fn != nil {
			fn(msg)
		}
	}
}
