package metrics

import "time"

// Recorder receives fetch coordinator events.
type Recorder interface {
	CacheHit()
	CacheMiss()
	Fetch(elapsed time.Duration, err error)
	SlowCall()
	Invalidated(n int)
}

// NoOpRecorder is used when metrics are disabled.
type NoOpRecorder struct{}

func (NoOpRecorder) CacheHit()                  {}
func (NoOpRecorder) CacheMiss()                 {}
func (NoOpRecorder) Fetch(time.Duration, error) {}
func (NoOpRecorder) SlowCall()                  {}
func (NoOpRecorder) Invalidated(int)            {}
