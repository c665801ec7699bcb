package collect

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

func testPool(t *testing.T, width int, spacing time.Duration) *Pool {
	t.Helper()
	pol := fetch.DefaultPolicy()
	pol.Backoff = time.Millisecond
	p := NewPool(Options{Width: width, Spacing: spacing, Fetcher: fetch.New(pol)})
	t.Cleanup(p.Close)
	return p
}

func TestRunIsolatesFailures(t *testing.T) {
	p := testPool(t, 4, 0)
	const d = 100 * time.Millisecond

	tasks := make([]Task[int], 4)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) fetch.Result[int] {
			return Call(ctx, p, "src"+strconv.Itoa(i), "task", func(context.Context) (int, error) {
				time.Sleep(d)
				if i == 1 {
					return 0, profile.ErrNotFound
				}
				return i, nil
			})
		}
	}

	start := time.Now()
	results := Run(context.Background(), p, tasks)
	elapsed := time.Since(start)

	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}
	var ok, failed int
	for i, r := range results {
		switch r.Status {
		case fetch.StatusSuccess:
			ok++
			if r.Value != i {
				t.Errorf("results[%d].Value = %d, want %d", i, r.Value, i)
			}
		case fetch.StatusFailed:
			failed++
			if i != 1 {
				t.Errorf("results[%d] failed, want only task 1 to fail", i)
			}
		}
	}
	if ok != 3 || failed != 1 {
		t.Errorf("got %d ok / %d failed, want 3 / 1", ok, failed)
	}
	if elapsed >= 3*d {
		t.Errorf("Run took %v, want concurrent execution under %v", elapsed, 3*d)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	const width = 2
	p := testPool(t, width, 0)

	var running, peak atomic.Int32
	tasks := make([]Task[struct{}], 8)
	for i := range tasks {
		tasks[i] = func(context.Context) fetch.Result[struct{}] {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return fetch.Success(struct{}{})
		}
	}
	Run(context.Background(), p, tasks)

	if got := peak.Load(); got > width {
		t.Errorf("peak concurrency = %d, want <= %d", got, width)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	p := testPool(t, 2, 0)
	results := Run(context.Background(), p, []Task[string]{
		func(context.Context) fetch.Result[string] { panic("kaboom") },
		func(context.Context) fetch.Result[string] { return fetch.Success("fine") },
	})
	if results[0].Status != fetch.StatusFailed {
		t.Errorf("panicking task Status = %q, want failed", results[0].Status)
	}
	if got, ok := results[1].Get(); !ok || got != "fine" {
		t.Errorf("sibling = %q, %v; want fine, true", got, ok)
	}
}

func TestAllWritesDestinations(t *testing.T) {
	p := testPool(t, 3, 0)
	var (
		a fetch.Result[int]
		b fetch.Result[string]
		c fetch.Result[[]string]
	)
	All(context.Background(), p,
		Into(&a, func(context.Context) fetch.Result[int] { return fetch.Success(42) }),
		Into(&b, func(context.Context) fetch.Result[string] { return fetch.Skipped[string](fetch.ReasonNoLink) }),
		Into(&c, func(context.Context) fetch.Result[[]string] { panic("nope") }),
	)
	if v, ok := a.Get(); !ok || v != 42 {
		t.Errorf("a = %v, %v; want 42, true", v, ok)
	}
	if b.Status != fetch.StatusSkipped || b.Reason != fetch.ReasonNoLink {
		t.Errorf("b = %+v, want skipped no_external_link", b)
	}
	if c.Status != fetch.StatusFailed {
		t.Errorf("c.Status = %q, want failed", c.Status)
	}
}

// pages serves handles in pages of size n from a fixed list.
func pages(all []string, n int, calls *int) PageFunc[string] {
	return func(_ context.Context, cursor string) ([]string, string, error) {
		*calls++
		start := 0
		if cursor != "" {
			var err error
			if start, err = strconv.Atoi(cursor); err != nil {
				return nil, "", err
			}
		}
		end := min(start+n, len(all))
		next := ""
		if end < len(all) {
			next = strconv.Itoa(end)
		}
		return all[start:end], next, nil
	}
}

func TestPaginate(t *testing.T) {
	var all []string
	for i := range 100 {
		all = append(all, fmt.Sprintf("user%03d", i))
	}

	tests := []struct {
		name      string
		total     int
		pageSize  int
		limit     int
		wantLen   int
		wantCalls int
	}{
		{name: "stops at bound mid page", total: 100, pageSize: 12, limit: 50, wantLen: 50, wantCalls: 5},
		{name: "exact page boundary", total: 100, pageSize: 10, limit: 50, wantLen: 50, wantCalls: 5},
		{name: "source exhausted first", total: 30, pageSize: 12, limit: 50, wantLen: 30, wantCalls: 3},
		{name: "zero limit fetches nothing", total: 30, pageSize: 12, limit: 0, wantLen: 0, wantCalls: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPool(t, 2, 0)
			calls := 0
			res := Paginate(context.Background(), p, "graph", "followers", tt.limit, pages(all[:tt.total], tt.pageSize, &calls))
			got, ok := res.Get()
			if !ok {
				t.Fatalf("Paginate failed: %v", res.Err())
			}
			if diff := cmp.Diff(all[:tt.wantLen], got); diff != "" {
				t.Errorf("items mismatch (-want +got):\n%s", diff)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestPaginateKeepsPartialOnFailure(t *testing.T) {
	p := testPool(t, 2, 0)
	calls := 0
	res := Paginate(context.Background(), p, "graph", "followees", 50,
		func(_ context.Context, cursor string) ([]string, string, error) {
			calls++
			if cursor == "" {
				return []string{"a", "b"}, "next", nil
			}
			return nil, "", fmt.Errorf("page 2: %w", profile.ErrAuthRequired)
		})

	if res.Status != fetch.StatusFailed || !res.Partial {
		t.Fatalf("res = %+v, want failed with partial", res)
	}
	if diff := cmp.Diff([]string{"a", "b"}, res.Value); diff != "" {
		t.Errorf("partial mismatch (-want +got):\n%s", diff)
	}
	if res.Failure.Kind != fetch.KindAuthRequired {
		t.Errorf("Kind = %q, want %q", res.Failure.Kind, fetch.KindAuthRequired)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestCallPacesSameSource(t *testing.T) {
	const spacing = 50 * time.Millisecond
	p := testPool(t, 4, spacing)

	start := time.Now()
	for range 3 {
		r := Call(context.Background(), p, "graph", "profile", func(context.Context) (int, error) { return 1, nil })
		if !r.OK() {
			t.Fatalf("Call failed: %v", r.Err())
		}
	}
	// First call is immediate, the next two each wait one interval.
	if elapsed := time.Since(start); elapsed < 2*spacing-5*time.Millisecond {
		t.Errorf("3 paced calls took %v, want at least %v", elapsed, 2*spacing)
	}

	start = time.Now()
	Call(context.Background(), p, "whois", "lookup", func(context.Context) (int, error) { return 1, nil })
	if elapsed := time.Since(start); elapsed > spacing {
		t.Errorf("first call to a new source took %v, want no pacing wait", elapsed)
	}
}

func TestCallPacingPastDeadlineIsTimeout(t *testing.T) {
	p := testPool(t, 1, time.Minute)
	if r := Call(context.Background(), p, "graph", "first", func(context.Context) (int, error) { return 1, nil }); !r.OK() {
		t.Fatalf("first Call failed: %v", r.Err())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	r := Call(ctx, p, "graph", "second", func(context.Context) (int, error) { return 1, nil })
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Call waited %v, want an immediate refusal", time.Since(start))
	}
	if r.Failure == nil || r.Failure.Kind != fetch.KindTimeout {
		t.Fatalf("result = %+v, want timeout failure", r.Failure)
	}
	if !errors.Is(r.Err(), context.DeadlineExceeded) {
		t.Errorf("err = %v, want it to wrap context.DeadlineExceeded", r.Err())
	}
}

func TestCallAfterClose(t *testing.T) {
	p := testPool(t, 1, 0)
	p.Close()
	r := Call(context.Background(), p, "graph", "profile", func(context.Context) (int, error) { return 1, nil })
	if !errors.Is(r.Err(), ErrClosed) {
		t.Errorf("Err() = %v, want ErrClosed", r.Err())
	}
}
