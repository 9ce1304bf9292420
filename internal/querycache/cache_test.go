package querycache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lingocast/internal/localstore"
	"lingocast/internal/querycache"
	"lingocast/internal/testsupport"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestQueryCachesUntilStale(t *testing.T) {
	clk := newClock()
	cache := querycache.New(querycache.Options{StaleTime: 5 * time.Minute, Clock: clk.Now})
	ctx := context.Background()

	var calls int
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := querycache.Query(ctx, cache, []string{"podcasts"}, fetch)
		if err != nil || len(got) != 2 {
			t.Fatalf("Query: %v %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one fetch while fresh, got %d", calls)
	}

	clk.Advance(5 * time.Minute)
	if _, err := querycache.Query(ctx, cache, []string{"podcasts"}, fetch); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected refetch after stale time, got %d", calls)
	}
	if hits, misses := cache.Stats(); hits != 2 || misses != 2 {
		t.Fatalf("unexpected stats hits=%d misses=%d", hits, misses)
	}
}

func TestQueryDeduplicatesConcurrentFetches(t *testing.T) {
	cache := querycache.New(querycache.Options{StaleTime: time.Minute})
	release := make(chan struct{})
	var calls atomic.Int32

	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := querycache.Query(context.Background(), cache, []string{"audio-files"}, fetch)
			if err != nil {
				t.Errorf("Query: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected a single shared fetch, got %d", calls.Load())
	}
	for _, v := range results {
		if v != 42 {
			t.Fatalf("unexpected result %v", results)
		}
	}
}

func TestQueryDoesNotRetryByDefault(t *testing.T) {
	cache := querycache.New(querycache.Options{StaleTime: time.Minute})
	boom := errors.New("boom")
	var calls int
	_, err := querycache.Query(context.Background(), cache, []string{"podcasts"}, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
}

func TestInvalidateByPrefixAndClear(t *testing.T) {
	cache := querycache.New(querycache.Options{StaleTime: time.Minute})
	ctx := context.Background()
	counts := map[string]int{}
	fetcher := func(name string) func(context.Context) (string, error) {
		return func(context.Context) (string, error) {
			counts[name]++
			return name, nil
		}
	}

	keys := [][]string{{"user"}, {"user", "profile"}, {"users"}, {"podcasts"}}
	for _, key := range keys {
		if _, err := querycache.Query(ctx, cache, key, fetcher(querycache.Key(key...))); err != nil {
			t.Fatalf("Query: %v", err)
		}
	}
	if err := cache.Invalidate(ctx, "user"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	for _, key := range keys {
		_, _ = querycache.Query(ctx, cache, key, fetcher(querycache.Key(key...)))
	}
	want := map[string]int{"user": 2, "user/profile": 2, "users": 1, "podcasts": 1}
	for key, n := range want {
		if counts[key] != n {
			t.Fatalf("fetch count for %s = %d, want %d", key, counts[key], n)
		}
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	_, _ = querycache.Query(ctx, cache, []string{"podcasts"}, fetcher("podcasts"))
	if counts["podcasts"] != 2 {
		t.Fatalf("expected refetch after Clear, got %d", counts["podcasts"])
	}
}

func TestPersistedEntriesSurviveNewCache(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	var calls int
	fetch := func(context.Context) (map[string]int, error) {
		calls++
		return map[string]int{"n": calls}, nil
	}

	first := querycache.New(querycache.Options{StaleTime: time.Minute, Persister: store})
	if _, err := querycache.Query(ctx, first, []string{"podcasts"}, fetch); err != nil {
		t.Fatalf("Query: %v", err)
	}

	second := querycache.New(querycache.Options{StaleTime: time.Minute, Persister: store})
	got, err := querycache.Query(ctx, second, []string{"podcasts"}, fetch)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if calls != 1 || got["n"] != 1 {
		t.Fatalf("expected persisted value without refetch, calls=%d got=%v", calls, got)
	}

	if err := second.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, _, ok, _ := store.LoadEntry(ctx, "podcasts"); ok {
		t.Fatal("expected Clear to remove persisted entries")
	}
	var _ querycache.Persister = (*localstore.Store)(nil)
}

func TestMutationCallbacksAndPending(t *testing.T) {
	var m querycache.Mutation[string]
	var order []string

	result, err := m.Mutate(context.Background(), func(context.Context) (string, error) {
		if !m.Pending() {
			t.Error("expected Pending during mutation")
		}
		return "ok", nil
	}, querycache.Callbacks[string]{
		OnSuccess: func(v string) { order = append(order, "success:"+v) },
		OnError:   func(error) { order = append(order, "error") },
		OnSettled: func(v string, err error) { order = append(order, "settled") },
	})
	if err != nil || result != "ok" {
		t.Fatalf("Mutate: %q %v", result, err)
	}
	if m.Pending() {
		t.Fatal("expected Pending to clear")
	}
	if len(order) != 2 || order[0] != "success:ok" || order[1] != "settled" {
		t.Fatalf("unexpected callback order %v", order)
	}

	order = nil
	boom := errors.New("boom")
	_, err = m.Mutate(context.Background(), func(context.Context) (string, error) { return "", boom },
		querycache.Callbacks[string]{
			OnError:   func(err error) { order = append(order, "error:"+err.Error()) },
			OnSettled: func(string, error) { order = append(order, "settled") },
		})
	if !errors.Is(err, boom) || len(order) != 2 || order[0] != "error:boom" {
		t.Fatalf("unexpected error path err=%v order=%v", err, order)
	}
}
