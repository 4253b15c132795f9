package broker

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every backend.
var (
	// ErrUnauthorized means the venue rejected our credentials.
	ErrUnauthorized = errors.New("broker: unauthorized")
	// ErrNotFound means the requested position or order does not exist.
	ErrNotFound = errors.New("broker: not found")
)

// TransportError wraps a network-level failure (timeout, DNS, reset). The
// request may or may not have reached the venue.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("broker: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// VenueError is a non-2xx response from the venue with the raw body kept for
// the tick report.
type VenueError struct {
	Op     string
	Status int
	Body   string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("broker: %s: venue rejected (status %d): %s", e.Op, e.Status, e.Body)
}
