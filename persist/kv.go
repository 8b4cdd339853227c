// Package persist holds the durable key-value surface the session is mirrored
// to, so that a restarted process can pick up where the last one left off.
package persist

import (
	"context"
)

// Keys under which the session is persisted.
const (
	KeyAccessToken = "accessToken"
	KeyUser        = "user"
)

// KV is a generic durable key-value store. Get reports ok=false for a missing
// key rather than an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
