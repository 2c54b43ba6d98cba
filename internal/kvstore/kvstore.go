package kvstore

import (
	"context"
)

// Store maps a key to an opaque value. Set overwrites the whole value
// atomically: a concurrent Get sees either the old or the new bytes.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Locker is implemented by backends shared between processes. Lock blocks
// until the caller holds key exclusively and returns the release func.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
