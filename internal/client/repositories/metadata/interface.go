// Package metadata stores small key/value bookkeeping for the client, such
// as the device identifier and the last observed server version.
package metadata

import "context"

// Repository is the local metadata store.
type Repository interface {
	// Get returns the value for key or common.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or replaces the value for key.
	Set(ctx context.Context, key, value string) error
}
