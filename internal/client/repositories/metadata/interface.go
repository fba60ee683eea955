// Package metadata implements the durable key-value store backing client
// state that must survive a restart: the bearer token, the edit-secret map
// and the owned-resume index.
package metadata

import "context"

// Repository is a byte-valued key-value store.
type Repository interface {
	// Get returns the value for key, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set inserts or overwrites the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all keys.
	Clear(ctx context.Context) error
}
