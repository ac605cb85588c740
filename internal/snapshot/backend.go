package snapshot

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Load when no document has been saved yet.
var ErrNotExist = errors.New("snapshot does not exist")

// Backend stores the single practice document. Save replaces the previous
// document in full.
type Backend interface {
	Name() string
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Pinger is implemented by backends that talk to a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}
