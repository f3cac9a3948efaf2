package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Borislavv/go-ash-query/config"
	"github.com/Borislavv/go-ash-query/internal/cache"
	"github.com/Borislavv/go-ash-query/model"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

type fixture[V any] struct {
	coord *Coordinator[V]
	cache *cache.Cache[V]
	clock *clock.Mock
	logs  *bytes.Buffer
}

func newFixture[V any](t *testing.T, mutate func(cfg *config.Cache)) *fixture[V] {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clk := clock.NewMock()
	c := cache.New[V](cfg, clk, logger)

	return &fixture[V]{
		coord: New[V](&cfg.Fetch, c, clk, logger, nil),
		cache: c,
		clock: clk,
		logs:  logs,
	}
}

func (f *fixture[V]) records(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(f.logs.String()), "\n") {
		if line == "" {
			continue
		}
		rec := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

// TestExecuteWithCache_CallsProducerOnce serves the second call within ttl from the cache.
func TestExecuteWithCache_CallsProducerOnce(t *testing.T) {
	f := newFixture[[]string](t, nil)

	var calls int
	producer := func(context.Context) ([]string, error) {
		calls++
		return []string{"volvo", "saab"}, nil
	}

	first, err := f.coord.ExecuteWithCache(context.Background(), "vehicle_search_{}", time.Minute, producer)
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := f.coord.ExecuteWithCache(context.Background(), "vehicle_search_{}", time.Minute, producer)
	require.NoError(t, err)
	require.True(t, second.FromCache)

	require.Equal(t, 1, calls)
	require.Equal(t, first.Value, second.Value)
}

// TestExecuteWithCache_RefetchesAfterTTL calls the producer again once the entry is stale.
func TestExecuteWithCache_RefetchesAfterTTL(t *testing.T) {
	f := newFixture[int](t, nil)

	var calls int
	producer := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, _ = f.coord.ExecuteWithCache(context.Background(), "k", time.Second, producer)
	f.clock.Add(time.Second)
	res, err := f.coord.ExecuteWithCache(context.Background(), "k", time.Second, producer)

	require.NoError(t, err)
	require.False(t, res.FromCache)
	require.Equal(t, 2, res.Value)
	require.Equal(t, 2, calls)
}

// TestExecuteWithCache_DefaultTTL uses the configured ttl when zero is passed.
func TestExecuteWithCache_DefaultTTL(t *testing.T) {
	f := newFixture[int](t, func(cfg *config.Cache) { cfg.Fetch.DefaultTTL = 10 * time.Second })

	var calls int
	producer := func(context.Context) (int, error) { calls++; return 1, nil }

	_, _ = f.coord.ExecuteWithCache(context.Background(), "k", 0, producer)
	f.clock.Add(9 * time.Second)
	res, _ := f.coord.ExecuteWithCache(context.Background(), "k", 0, producer)
	require.True(t, res.FromCache)

	f.clock.Add(time.Second)
	res, _ = f.coord.ExecuteWithCache(context.Background(), "k", 0, producer)
	require.False(t, res.FromCache)
	require.Equal(t, 2, calls)
}

// TestExecuteWithCache_ErrorPropagates returns the very same error and caches nothing.
func TestExecuteWithCache_ErrorPropagates(t *testing.T) {
	f := newFixture[string](t, nil)
	producerErr := errors.New("relation \"vehicles\" does not exist")

	_, err := f.coord.ExecuteWithCache(context.Background(), "k", time.Minute, func(context.Context) (string, error) {
		return "", producerErr
	})

	require.Same(t, producerErr, err)
	require.Equal(t, int64(0), f.cache.Len(), "failures must not be cached")

	_, _, failed, _, _ := f.coord.Metrics()
	require.Equal(t, int64(1), failed)

	recs := f.records(t)
	require.NotEmpty(t, recs)
	last := recs[len(recs)-1]
	require.Equal(t, "ERROR", last["level"])
	require.Equal(t, "producer failed", last["msg"])
	require.Equal(t, "k", last["key"])
}

// TestExecuteWithCache_NoRetry calls a failing producer exactly once per call.
func TestExecuteWithCache_NoRetry(t *testing.T) {
	f := newFixture[string](t, nil)

	var calls int
	for i := 0; i < 3; i++ {
		_, err := f.coord.ExecuteWithCache(context.Background(), "k", time.Minute, func(context.Context) (string, error) {
			calls++
			return "", errors.New("unavailable")
		})
		require.Error(t, err)
	}
	require.Equal(t, 3, calls)
}

// TestExecuteWithCache_SlowCall logs a warning with key, elapsed and threshold and still returns the value.
func TestExecuteWithCache_SlowCall(t *testing.T) {
	f := newFixture[string](t, nil)

	res, err := f.coord.ExecuteWithCache(context.Background(), "slow_key", time.Minute, func(context.Context) (string, error) {
		f.clock.Add(1500 * time.Millisecond)
		return "value", nil
	})

	require.NoError(t, err)
	require.Equal(t, "value", res.Value)
	require.Equal(t, 1500*time.Millisecond, res.Elapsed)

	var slow []map[string]any
	for _, rec := range f.records(t) {
		if rec["msg"] == "slow call" {
			slow = append(slow, rec)
		}
	}
	require.Len(t, slow, 1)
	require.Equal(t, "WARN", slow[0]["level"])
	require.Equal(t, "slow_key", slow[0]["key"])
	require.Equal(t, float64(1500*time.Millisecond), slow[0]["elapsed"])
	require.Equal(t, float64(time.Second), slow[0]["threshold"])

	stats := f.cache.Stats()
	require.Equal(t, 1500*time.Millisecond, stats.Entries[0].Cost, "latency is stored as entry cost")
}

// TestExecuteWithCache_FastCallNotReported emits no slow call event below the threshold.
func TestExecuteWithCache_FastCallNotReported(t *testing.T) {
	f := newFixture[string](t, nil)

	_, err := f.coord.ExecuteWithCache(context.Background(), "k", time.Minute, func(context.Context) (string, error) {
		f.clock.Add(time.Second)
		return "v", nil
	})

	require.NoError(t, err)
	require.NotContains(t, f.logs.String(), "slow call")
	_, _, _, slow, _ := f.coord.Metrics()
	require.Zero(t, slow)
}

// TestExecuteWithCache_NegativeTTL fails before calling the producer.
func TestExecuteWithCache_NegativeTTL(t *testing.T) {
	f := newFixture[string](t, nil)

	var called bool
	_, err := f.coord.ExecuteWithCache(context.Background(), "k", -time.Second, func(context.Context) (string, error) {
		called = true
		return "", nil
	})

	require.ErrorIs(t, err, model.ErrNegativeTTL)
	require.False(t, called)
}

// TestExecuteWithCache_NilProducer is a configuration error.
func TestExecuteWithCache_NilProducer(t *testing.T) {
	f := newFixture[string](t, nil)

	_, err := f.coord.ExecuteWithCache(context.Background(), "k", time.Second, nil)
	require.ErrorIs(t, err, model.ErrNilProducer)
}

// TestExecuteWithCache_NoSingleFlightByDefault lets every concurrent miss call its own producer.
func TestExecuteWithCache_NoSingleFlightByDefault(t *testing.T) {
	f := newFixture[int](t, nil)

	const n = 5
	var (
		calls   atomic.Int64
		entered sync.WaitGroup
		wg      sync.WaitGroup
	)
	entered.Add(n)
	producer := func(context.Context) (int, error) {
		calls.Add(1)
		entered.Done()
		entered.Wait() // nobody stores before every caller has missed
		return 1, nil
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.coord.ExecuteWithCache(context.Background(), "k", time.Minute, producer)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(n), calls.Load())
}

// TestExecuteWithCache_SingleFlight collapses concurrent misses into one producer call.
func TestExecuteWithCache_SingleFlight(t *testing.T) {
	f := newFixture[int](t, func(cfg *config.Cache) { cfg.Fetch.SingleFlight = true })

	const n = 10
	var (
		calls   atomic.Int64
		release = make(chan struct{})
		wg      sync.WaitGroup
		results = make([]Result[int], n)
	)
	producer := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = f.coord.ExecuteWithCache(context.Background(), "k", time.Minute, producer)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int64(1), calls.Load())
	for _, res := range results {
		require.Equal(t, 42, res.Value)
	}
}

// TestExecuteBatch_IsolatesFailures keeps order and marks only the failing entry.
func TestExecuteBatch_IsolatesFailures(t *testing.T) {
	f := newFixture[string](t, nil)
	failure := errors.New("permission denied")

	results := f.coord.ExecuteBatch(context.Background(), []Request[string]{
		{Key: "a", UseCache: true, Producer: func(context.Context) (string, error) { return "first", nil }},
		{Key: "b", UseCache: true, Producer: func(context.Context) (string, error) { return "", failure }},
		{Key: "c", UseCache: true, Producer: func(context.Context) (string, error) { return "third", nil }},
	})

	require.Len(t, results, 3)
	require.True(t, results[0].Success)
	require.Equal(t, "first", results[0].Value)
	require.False(t, results[1].Success)
	require.Same(t, failure, results[1].Err)
	require.True(t, results[2].Success)
	require.Equal(t, "third", results[2].Value)
}

// TestExecuteBatch_OrderIndependentOfCompletion returns results in input order.
func TestExecuteBatch_OrderIndependentOfCompletion(t *testing.T) {
	f := newFixture[int](t, nil)
	lastDone := make(chan struct{})

	results := f.coord.ExecuteBatch(context.Background(), []Request[int]{
		{Key: "slowest", Producer: func(context.Context) (int, error) {
			<-lastDone // finishes only after the last entry
			return 1, nil
		}},
		{Key: "middle", Producer: func(context.Context) (int, error) { return 2, nil }},
		{Key: "fastest", Producer: func(context.Context) (int, error) {
			defer close(lastDone)
			return 3, nil
		}},
	})

	require.Equal(t, 1, results[0].Value)
	require.Equal(t, 2, results[1].Value)
	require.Equal(t, 3, results[2].Value)
}

// TestExecuteBatch_UseCacheFalse bypasses the cache entirely.
func TestExecuteBatch_UseCacheFalse(t *testing.T) {
	f := newFixture[string](t, nil)
	f.cache.Set("k", "cached", 0)

	results := f.coord.ExecuteBatch(context.Background(), []Request[string]{
		{Key: "k", UseCache: false, Producer: func(context.Context) (string, error) { return "fresh", nil }},
		{Key: "other", UseCache: false, Producer: func(context.Context) (string, error) { return "x", nil }},
	})

	require.Equal(t, "fresh", results[0].Value)
	require.False(t, results[0].FromCache)
	require.Equal(t, int64(1), f.cache.Len(), "uncached entries must not be stored")
}

// TestExecuteBatch_UseCacheTrue serves hits from the cache.
func TestExecuteBatch_UseCacheTrue(t *testing.T) {
	f := newFixture[string](t, nil)
	f.cache.Set("k", "cached", 0)

	results := f.coord.ExecuteBatch(context.Background(), []Request[string]{
		{Key: "k", TTL: time.Minute, UseCache: true, Producer: func(context.Context) (string, error) { return "fresh", nil }},
		{Key: "nil", UseCache: false},
	})

	require.True(t, results[0].FromCache)
	require.Equal(t, "cached", results[0].Value)
	require.ErrorIs(t, results[1].Err, model.ErrNilProducer)
}

// TestExecuteBatch_Bounded runs no more than batch_concurrency entries at once.
func TestExecuteBatch_Bounded(t *testing.T) {
	f := newFixture[int](t, func(cfg *config.Cache) { cfg.Fetch.BatchConcurrency = 2 })

	var running, peak atomic.Int64
	reqs := make([]Request[int], 8)
	for i := range reqs {
		reqs[i] = Request[int]{Key: "k", Producer: func(context.Context) (int, error) {
			cur := running.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return 1, nil
		}}
	}

	results := f.coord.ExecuteBatch(context.Background(), reqs)

	require.Len(t, results, 8)
	require.LessOrEqual(t, peak.Load(), int64(2))
}

// TestExecuteBatch_Empty returns an empty slice.
func TestExecuteBatch_Empty(t *testing.T) {
	f := newFixture[int](t, nil)
	require.Empty(t, f.coord.ExecuteBatch(context.Background(), nil))
}
