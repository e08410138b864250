// Package dht reads swarm state out of the hivemind DHT, either through the
// HTTP gateway sidecar or through a Redis mirror of it.
package dht

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the key holds no live value.
	ErrNotFound = errors.New("dht: key not found")
	// ErrUnavailable means the store could not answer right now.
	ErrUnavailable = errors.New("dht: store unavailable")
)

// Store performs a single keyed lookup. beamSize bounds how many records
// the lookup consults; latest asks for the freshest value seen.
type Store interface {
	Get(ctx context.Context, key string, beamSize int, latest bool) (Entry, error)
}
