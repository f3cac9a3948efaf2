package coordinator

import (
	"context"
	"time"
)

// Producer performs the actual remote call. The coordinator treats it as opaque:
// ctx is passed through untouched, no timeout or retry is added.
type Producer[V any] func(ctx context.Context) (V, error)

type Result[V any] struct {
	Value     V
	FromCache bool
	// Elapsed is the producer latency; zero when served from the cache.
	Elapsed time.Duration
}

type Request[V any] struct {
	Key string
	// TTL of zero means the configured default.
	TTL time.Duration
	// UseCache false calls Producer directly without reading or writing the cache.
	UseCache bool
	Producer Producer[V]
}

type BatchResult[V any] struct {
	Success   bool
	Value     V
	FromCache bool
	Err       error
}
