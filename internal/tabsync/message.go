package tabsync

import (
	"context"
	"fmt"
)

// DefaultChannelName is the broadcast channel shared by every tab.
const DefaultChannelName = "first-emporium-image-sync"

// Kind identifies a sync message.
type Kind string

const (
	KindImageUpdated Kind = "image-updated"
	KindImageDeleted Kind = "image-deleted"
	KindSyncRequest  Kind = "sync-request"
	KindSyncResponse Kind = "sync-response"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindImageUpdated, KindImageDeleted, KindSyncRequest, KindSyncResponse:
		return true
	}
	return false
}

// Message is one event broadcast between tabs. Messages are immutable
// once posted and idempotent when replayed.
type Message struct {
	Kind      Kind             `cbor:"kind" json:"kind"`
	ProductID int64            `cbor:"product_id,omitempty" json:"product_id,omitempty"`
	Payload   string           `cbor:"payload,omitempty" json:"payload,omitempty"`
	Images    map[int64]string `cbor:"images,omitempty" json:"images,omitempty"`

	// Origin is the sending tab's identifier.
	Origin string `cbor:"origin" json:"origin"`

	// ReplyTo addresses a SyncResponse to the requesting tab.
	ReplyTo string `cbor:"reply_to,omitempty" json:"reply_to,omitempty"`

	// Seq is strictly increasing per origin.
	Seq int64 `cbor:"seq" json:"seq"`

	// Timestamp is the sender's wall clock in Unix milliseconds.
	Timestamp int64 `cbor:"ts" json:"ts"`
}

// Validate checks that the fields required by Kind are present.
func (m Message) Validate() error {
	switch m.Kind {
	case KindImageUpdated:
		if m.ProductID == 0 {
			return fmt.Errorf("%s: missing product id", m.Kind)
		}
		if m.Payload == "" {
			return fmt.Errorf("%s: missing payload", m.Kind)
		}
	case KindImageDeleted:
		if m.ProductID == 0 {
			return fmt.Errorf("%s: missing product id", m.Kind)
		}
	case KindSyncRequest, KindSyncResponse:
	default:
		return fmt.Errorf("unknown message kind %q", m.Kind)
	}
	return nil
}

// Channel is a named broadcast channel. A message posted by one endpoint
// is delivered to every other endpoint on the same channel and never back
// to the sender.
type Channel interface {
	// Post broadcasts msg. Returns ErrClosed after Close.
	Post(ctx context.Context, msg Message) error

	// OnMessage sets the inbound handler. Handlers are called one at a
	// time per endpoint.
	OnMessage(fn func(Message))

	// Close releases the endpoint.
	Close() error
}

// Opener opens a named Channel.
type Opener interface {
	Open(ctx context.Context, name string) (Channel, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, name string) (Channel, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, name string) (Channel, error) {
	return f(ctx, name)
}
