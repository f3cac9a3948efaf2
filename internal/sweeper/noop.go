package sweeper

// NoOpSweeper is used when lifetime is not configured: entries then live
// until they are overwritten, invalidated or cleared.
type NoOpSweeper struct{}

func (NoOpSweeper) Metrics() (scans, removed int64) { return 0, 0 }
func (NoOpSweeper) Close() error                    { return nil }
