// Package cachedtime provides a clock whose Now is refreshed on a ticker
// instead of being computed on every call. Hot read paths compare entry ages
// against it, so a resolution of a few milliseconds is acceptable.
package cachedtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-ash-query/config"
	"github.com/benbjohnson/clock"
)

// Clock embeds the base clock; only Now and Since are served from the cached value.
type Clock struct {
	clock.Clock
	nowUnix atomic.Int64
	closed  atomic.Bool
}

// RunIfEnabled wraps base into a cached clock when the config asks for it,
// otherwise base is returned as is.
func RunIfEnabled(ctx context.Context, base clock.Clock, cfg *config.Cache) clock.Clock {
	if cfg == nil || !cfg.DB.CacheTimeEnabled {
		return base
	}
	return New(ctx, base, cfg.DB.CacheTimeResolution)
}

// New starts refreshing the cached value every resolution until ctx is done.
// After that the clock falls back to the base clock.
func New(ctx context.Context, base clock.Clock, resolution time.Duration) *Clock {
	if resolution <= 0 {
		resolution = config.DefaultCacheTimeResolution
	}
	c := &Clock{Clock: base}
	c.nowUnix.Store(base.Now().UnixNano())

	ticker := base.Ticker(resolution)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.closed.Store(true)
				return
			case tt := <-ticker.C:
				c.nowUnix.Store(tt.UnixNano())
			}
		}
	}()
	return c
}

func (c *Clock) Now() time.Time {
	if c.closed.Load() {
		return c.Clock.Now()
	}
	return time.Unix(0, c.nowUnix.Load())
}

func (c *Clock) UnixNano() int64 {
	if c.closed.Load() {
		return c.Clock.Now().UnixNano()
	}
	return c.nowUnix.Load()
}

func (c *Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
