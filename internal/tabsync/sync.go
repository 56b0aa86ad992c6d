package tabsync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/emporium/internal/clock"
	"github.com/roach88/emporium/internal/imagestore"
)

// State is the lifecycle state of a Sync.
type State int

const (
	Uninitialized State = iota
	Listening
	Disabled
	Closed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Listening:
		return "listening"
	case Disabled:
		return "disabled"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stats counts traffic through a Sync.
type Stats struct {
	State    string `json:"state"`
	Origin   string `json:"origin"`
	Sent     int    `json:"sent"`
	Received int    `json:"received"`
	Applied  int    `json:"applied"`
	Ignored  int    `json:"ignored"`
	Dropped  int    `json:"dropped"`
}

// Sync connects one tab's image store to the broadcast channel.
//
// Thread-safety: all methods are safe for concurrent use. Remote events
// are applied only by Run or Drain; callers should use one of them, not
// both at once.
type Sync struct {
	store   *imagestore.Store
	opener  Opener
	name    string
	origin  string
	seq     *clock.Sequence
	clock   clock.Clock
	logger  *slog.Logger
	inbox   *inbox
	applyMu sync.Mutex // serializes Handle

	mu    sync.Mutex
	state State
	ch    Channel
	stats Stats
}

// Option configures a Sync.
type Option func(*Sync)

// WithOpener sets the transport. Without one, Init moves to Disabled.
func WithOpener(o Opener) Option {
	return func(s *Sync) { s.opener = o }
}

// WithChannelName overrides DefaultChannelName.
func WithChannelName(name string) Option {
	return func(s *Sync) { s.name = name }
}

// WithOrigin fixes the tab identifier. The default is a fresh UUIDv7.
func WithOrigin(origin string) Option {
	return func(s *Sync) { s.origin = origin }
}

// WithClock sets the wall clock used for message timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Sync) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sync) { s.logger = l }
}

// New creates an uninitialized Sync for store.
func New(store *imagestore.Store, opts ...Option) *Sync {
	s := &Sync{
		store:  store,
		name:   DefaultChannelName,
		seq:    clock.NewSequence(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		inbox:  newInbox(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.origin == "" {
		s.origin = uuid.Must(uuid.NewV7()).String()
	}
	s.clock = clock.Or(s.clock)
	s.logger = s.logger.With("origin", s.origin, "channel", s.name)
	return s
}

// Origin returns this tab's identifier.
func (s *Sync) Origin() string { return s.origin }

// State returns the current lifecycle state.
func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a copy of the traffic counters.
func (s *Sync) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.State = s.state.String()
	st.Origin = s.origin
	return st
}

// Init opens the channel and starts accepting inbound messages. Calling
// Init again is a no-op. Init never fails: a missing or failing transport
// leaves the Sync Disabled.
func (s *Sync) Init(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Uninitialized {
		return s.state
	}
	if s.opener == nil {
		s.disableLocked(&TransportUnavailableError{Op: "open", Channel: s.name, Err: ErrUnsupported})
		return s.state
	}

	ch, err := s.opener.Open(ctx, s.name)
	if err != nil {
		s.disableLocked(&TransportUnavailableError{Op: "open", Channel: s.name, Err: err})
		return s.state
	}
	ch.OnMessage(s.receive)
	s.ch = ch
	s.state = Listening
	s.logger.Info("cross-tab sync listening")
	return s.state
}

func (s *Sync) disableLocked(err error) {
	s.state = Disabled
	s.inbox.Close()
	s.logger.Warn("cross-tab sync disabled", "error", err)
}

// receive is the channel handler.
func (s *Sync) receive(msg Message) {
	if !s.inbox.Enqueue(msg) {
		return
	}
	s.mu.Lock()
	s.stats.Received++
	s.mu.Unlock()
}

// Broadcast stamps msg with this tab's origin, sequence number, and
// timestamp, then posts it. Returns whether the post succeeded. Failures
// are logged and counted, never returned.
func (s *Sync) Broadcast(ctx context.Context, msg Message) bool {
	s.mu.Lock()
	state, ch := s.state, s.ch
	s.mu.Unlock()

	if state != Listening {
		s.drop(msg, &TransportUnavailableError{Op: "post", Channel: s.name, Err: fmt.Errorf("sync is %s", state)})
		return false
	}

	msg.Origin = s.origin
	msg.Seq = s.seq.Next()
	msg.Timestamp = s.clock.Now().UnixMilli()

	if err := ch.Post(ctx, msg); err != nil {
		s.drop(msg, &TransportUnavailableError{Op: "post", Channel: s.name, Err: err})
		return false
	}

	s.mu.Lock()
	s.stats.Sent++
	s.mu.Unlock()
	s.logger.Debug("broadcast", "kind", string(msg.Kind), "product_id", msg.ProductID, "seq", msg.Seq)
	return true
}

func (s *Sync) drop(msg Message, err error) {
	s.mu.Lock()
	s.stats.Dropped++
	s.mu.Unlock()
	s.logger.Debug("broadcast dropped", "kind", string(msg.Kind), "error", err)
}

// UpdateImage sets the image locally and broadcasts it. An empty payload
// is rejected by the store and never broadcast, so every tab applies the
// same rule. Returns whether the local set happened.
func (s *Sync) UpdateImage(ctx context.Context, productID int64, payload string) bool {
	if !s.store.Set(productID, payload) {
		return false
	}
	s.Broadcast(ctx, Message{Kind: KindImageUpdated, ProductID: productID, Payload: payload})
	return true
}

// DeleteImage deletes the image locally and, if something was deleted,
// broadcasts the deletion. Returns whether something was deleted.
func (s *Sync) DeleteImage(ctx context.Context, productID int64) bool {
	if !s.store.Delete(productID) {
		return false
	}
	s.Broadcast(ctx, Message{Kind: KindImageDeleted, ProductID: productID})
	return true
}

// RequestSync asks every other tab for its image map.
func (s *Sync) RequestSync(ctx context.Context) bool {
	return s.Broadcast(ctx, Message{Kind: KindSyncRequest})
}

// Handle applies one inbound message. Messages from this tab and
// responses addressed elsewhere are ignored.
func (s *Sync) Handle(ctx context.Context, msg Message) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if msg.Origin == s.origin {
		s.count(&s.stats.Ignored)
		return nil
	}
	if err := msg.Validate(); err != nil {
		s.count(&s.stats.Ignored)
		return fmt.Errorf("message from %s: %w", msg.Origin, err)
	}

	switch msg.Kind {
	case KindImageUpdated:
		s.store.Set(msg.ProductID, msg.Payload)

	case KindImageDeleted:
		s.store.Delete(msg.ProductID)

	case KindSyncRequest:
		s.Broadcast(ctx, Message{
			Kind:    KindSyncResponse,
			Images:  s.store.All(),
			ReplyTo: msg.Origin,
		})

	case KindSyncResponse:
		if msg.ReplyTo != "" && msg.ReplyTo != s.origin {
			s.count(&s.stats.Ignored)
			return nil
		}
		ids := make([]int64, 0, len(msg.Images))
		for id := range msg.Images {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			s.store.Set(id, msg.Images[id])
		}
	}

	s.count(&s.stats.Applied)
	s.logger.Debug("applied remote event",
		"kind", string(msg.Kind),
		"from", msg.Origin,
		"seq", msg.Seq,
		"product_id", msg.ProductID,
	)
	return nil
}

func (s *Sync) count(field *int) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

// Drain handles every queued message without blocking and returns how
// many were processed. Handle errors are logged.
func (s *Sync) Drain(ctx context.Context) int {
	n := 0
	for {
		msg, ok := s.inbox.TryDequeue()
		if !ok {
			return n
		}
		s.handleLogged(ctx, msg)
		n++
	}
}

// Run applies inbound messages until ctx is cancelled or the Sync is
// closed. It must be called from exactly one goroutine.
//
// A message that fails to apply is logged and skipped.
func (s *Sync) Run(ctx context.Context) error {
	for {
		if msg, ok := s.inbox.TryDequeue(); ok {
			s.handleLogged(ctx, msg)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.inbox.Wait():
			// The signal channel closes with the inbox.
			if s.inbox.Len() == 0 && s.closedOrDisabled() {
				return nil
			}
		}
	}
}

func (s *Sync) closedOrDisabled() bool {
	st := s.State()
	return st == Closed || st == Disabled
}

func (s *Sync) handleLogged(ctx context.Context, msg Message) {
	if err := s.Handle(ctx, msg); err != nil {
		s.logger.Warn("remote event rejected", "error", err)
	}
}

// Close releases the channel. Queued messages can still be drained.
// Close is idempotent.
func (s *Sync) Close() error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil
	}
	ch := s.ch
	s.ch = nil
	s.state = Closed
	s.inbox.Close()
	s.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			s.logger.Warn("close channel", "error", &TransportUnavailableError{Op: "close", Channel: s.name, Err: err})
		}
	}
	s.logger.Info("cross-tab sync closed")
	return nil
}
