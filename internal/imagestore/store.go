package imagestore

import (
	"encoding/hex"
	"log/slog"
	"sort"
	"sync"

	"github.com/zeebo/blake3"
)

// Kind distinguishes store notifications.
type Kind string

const (
	// ImageUpdated is emitted when Set creates or overwrites an entry.
	ImageUpdated Kind = "image-updated"
	// ImageDeleted is emitted when Delete removes an entry.
	ImageDeleted Kind = "image-deleted"
)

// Event describes one store mutation.
type Event struct {
	Kind      Kind
	ProductID int64

	// Payload is the new image for ImageUpdated, empty for ImageDeleted.
	Payload string

	// OldPayload is the value replaced or removed. HadOld is false when
	// Set created a new entry.
	OldPayload string
	HadOld     bool
}

// Listener receives store events.
type Listener func(Event)

// Subscription identifies a registered listener for Unsubscribe.
type Subscription struct {
	id uint64
}

// Seed is an initial image reference for one product.
type Seed struct {
	ProductID int64
	Image     string
}

// Entry is one image in a Stats snapshot.
type Entry struct {
	ProductID int64  `json:"product_id"`
	Bytes     int    `json:"bytes"`
	Digest    string `json:"digest"`
}

// Stats is a diagnostic snapshot of the store.
type Stats struct {
	Total     int              `json:"total"`
	Bytes     int              `json:"bytes"`
	Listeners int              `json:"listeners"`
	Images    map[int64]string `json:"-"`
	Entries   []Entry          `json:"entries"`
}

type registration struct {
	id uint64
	fn Listener
}

// Store maps product IDs to image payloads. Payloads are opaque strings:
// catalog paths, URLs, or data URIs produced by the upload pipeline.
//
// Thread-safety: all methods are safe for concurrent use. Events are
// delivered one at a time in mutation order. A listener may call Set or
// Delete; the resulting event is queued and delivered after the current
// one finishes.
type Store struct {
	mu        sync.RWMutex
	images    map[int64]string
	listeners []registration
	nextID    uint64

	pending     []Event // undelivered events, oldest first
	dispatching bool    // a caller is draining pending

	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for listener failures and mutations.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		images: make(map[int64]string),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init fills gaps in the map from seeds. Existing entries are kept. Seeds
// with an empty image are skipped. Returns the number of entries added.
// Init does not notify listeners; it is a load, not a mutation.
func (s *Store) Init(seeds []Seed) int {
	s.mu.Lock()
	added := 0
	for _, seed := range seeds {
		if seed.Image == "" {
			continue
		}
		if _, exists := s.images[seed.ProductID]; exists {
			continue
		}
		s.images[seed.ProductID] = seed.Image
		added++
	}
	total := len(s.images)
	s.mu.Unlock()

	s.logger.Debug("image store seeded", "added", added, "total", total)
	return added
}

// Get returns the payload for productID.
func (s *Store) Get(productID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.images[productID]
	return v, ok
}

// Has reports whether productID has a non-empty image.
func (s *Store) Has(productID int64) bool {
	v, ok := s.Get(productID)
	return ok && v != ""
}

// Len returns the number of stored images.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// Set creates or overwrites the payload for productID and notifies
// listeners with ImageUpdated. An empty payload is rejected: Set returns
// false and nothing changes.
func (s *Store) Set(productID int64, payload string) bool {
	if payload == "" {
		s.logger.Debug("empty image payload rejected", "product_id", productID)
		return false
	}

	s.mu.Lock()
	old, hadOld := s.images[productID]
	s.images[productID] = payload
	lead := s.enqueueLocked(Event{
		Kind:       ImageUpdated,
		ProductID:  productID,
		Payload:    payload,
		OldPayload: old,
		HadOld:     hadOld,
	})
	s.mu.Unlock()

	s.logger.Debug("image set", "product_id", productID, "bytes", len(payload))
	if lead {
		s.dispatch()
	}
	return true
}

// Delete removes the payload for productID and notifies listeners with
// ImageDeleted. Returns false without notifying if nothing was stored.
func (s *Store) Delete(productID int64) bool {
	s.mu.Lock()
	old, ok := s.images[productID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.images, productID)
	lead := s.enqueueLocked(Event{
		Kind:       ImageDeleted,
		ProductID:  productID,
		OldPayload: old,
		HadOld:     true,
	})
	s.mu.Unlock()

	s.logger.Debug("image deleted", "product_id", productID)
	if lead {
		s.dispatch()
	}
	return true
}

// All returns a copy of the map.
func (s *Store) All() map[int64]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]string, len(s.images))
	for k, v := range s.images {
		out[k] = v
	}
	return out
}

// Stats returns counts, sizes, and a BLAKE3 digest per entry. Entries are
// ordered by product ID.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	images := make(map[int64]string, len(s.images))
	for k, v := range s.images {
		images[k] = v
	}
	listeners := len(s.listeners)
	s.mu.RUnlock()

	stats := Stats{
		Total:     len(images),
		Listeners: listeners,
		Images:    images,
		Entries:   make([]Entry, 0, len(images)),
	}
	for id, payload := range images {
		sum := blake3.Sum256([]byte(payload))
		stats.Entries = append(stats.Entries, Entry{
			ProductID: id,
			Bytes:     len(payload),
			Digest:    hex.EncodeToString(sum[:]),
		})
		stats.Bytes += len(payload)
	}
	sort.Slice(stats.Entries, func(i, j int) bool {
		return stats.Entries[i].ProductID < stats.Entries[j].ProductID
	})
	return stats
}

// SyncTo overwrites Image on every target that has a stored payload and
// leaves the rest untouched. Returns the number of targets updated.
func (s *Store) SyncTo(targets []Seed) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for i := range targets {
		if v, ok := s.images[targets[i].ProductID]; ok {
			targets[i].Image = v
			n++
		}
	}
	return n
}

// Subscribe registers fn and returns a handle for Unsubscribe. A nil fn
// is ignored and yields a zero handle.
func (s *Store) Subscribe(fn Listener) Subscription {
	if fn == nil {
		return Subscription{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.listeners = append(s.listeners, registration{id: s.nextID, fn: fn})
	s.logger.Debug("listener subscribed", "listeners", len(s.listeners))
	return Subscription{id: s.nextID}
}

// Unsubscribe removes a listener. Returns false if the handle is unknown
// or already removed.
func (s *Store) Unsubscribe(sub Subscription) bool {
	if sub.id == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.listeners {
		if r.id == sub.id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			s.logger.Debug("listener unsubscribed", "listeners", len(s.listeners))
			return true
		}
	}
	return false
}

// ListenerCount returns the number of registered listeners.
func (s *Store) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// enqueueLocked queues ev and reports whether the caller must dispatch.
func (s *Store) enqueueLocked(ev Event) bool {
	s.pending = append(s.pending, ev)
	if s.dispatching {
		return false
	}
	s.dispatching = true
	return true
}

// dispatch delivers queued events until none remain. Listeners run without
// the lock held, each seeing the listener set current at delivery time.
func (s *Store) dispatch() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.pending = nil
			s.dispatching = false
			s.mu.Unlock()
			return
		}
		ev := s.pending[0]
		s.pending = s.pending[1:]
		listeners := append([]registration(nil), s.listeners...)
		s.mu.Unlock()

		for _, r := range listeners {
			s.invoke(r, ev)
		}
	}
}

// invoke isolates one listener call.
func (s *Store) invoke(r registration, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("image listener panicked",
				"listener", r.id,
				"kind", string(ev.Kind),
				"product_id", ev.ProductID,
				"panic", p,
			)
		}
	}()
	r.fn(ev)
}
