package port

import (
	"context"
)

// SessionStore is a key/value store for client session state.
// Values are opaque bytes; absent keys report found == false.
type SessionStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, keys ...string) error
}
