package repositories

import (
	"context"
	"errors"
)

// Durable keys. The session manager owns TokenKey and the cart engine owns
// CartKey; neither reads the other's key.
const (
	TokenKey = "authToken"
	CartKey  = "shoppingCart"
)

// ErrNotFound is returned by KeyValueStore.Get when the key has no value
var ErrNotFound = errors.New("key not found")

// KeyValueStore is durable storage for whole values addressed by key.
// Each Set replaces the previous value atomically.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
