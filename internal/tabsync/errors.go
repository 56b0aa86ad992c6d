package tabsync

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by a Channel used after Close.
var ErrClosed = errors.New("tabsync: channel closed")

// ErrUnsupported reports that no broadcast transport is available.
var ErrUnsupported = errors.New("tabsync: broadcast transport unsupported")

// TransportUnavailableError describes a swallowed transport failure.
type TransportUnavailableError struct {
	// Op is the operation that failed: "open", "post", or "close".
	Op string

	// Channel is the channel name.
	Channel string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *TransportUnavailableError) Error() string {
	return fmt.Sprintf("transport unavailable: %s %s: %v", e.Op, e.Channel, e.Err)
}

// Unwrap returns the underlying failure.
func (e *TransportUnavailableError) Unwrap() error { return e.Err }

// IsTransportUnavailable returns true if err is a TransportUnavailableError.
func IsTransportUnavailable(err error) bool {
	var te *TransportUnavailableError
	return errors.As(err, &te)
}
