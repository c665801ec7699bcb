package collect

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
)

// Task produces one result. Tasks never return errors; failures are carried in the Result.
type Task[T any] func(ctx context.Context) fetch.Result[T]

// Job is a type-erased task produced by Into, used to fan out tasks of different types.
type Job func(ctx context.Context, p *Pool)

// PageFunc fetches the page at cursor. The first page has an empty cursor; an empty
// next cursor ends the enumeration.
type PageFunc[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

// Run executes tasks concurrently, at most p.Width() at a time, and returns one result per
// task in task order. A failing or panicking task never cancels its siblings.
func Run[T any](ctx context.Context, p *Pool, tasks []Task[T]) []fetch.Result[T] {
	results := make([]fetch.Result[T], len(tasks))
	var g errgroup.Group
	g.SetLimit(p.width)
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = guard(ctx, p.logger, task)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks always return nil
	return results
}

// Into binds a typed task to the location its result is stored in.
func Into[T any](dst *fetch.Result[T], task Task[T]) Job {
	return func(ctx context.Context, p *Pool) {
		*dst = guard(ctx, p.logger, task)
	}
}

// All runs heterogeneous jobs concurrently under the pool bound and waits for all of them.
// Each job writes to its own destination, so no further synchronization is needed.
func All(ctx context.Context, p *Pool, jobs ...Job) {
	var g errgroup.Group
	g.SetLimit(p.width)
	for _, job := range jobs {
		g.Go(func() error {
			job(ctx, p)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // jobs always return nil
}

// Call performs one paced, bounded and retried network operation against source.
// A pool slot is held only while op runs, never across a pacing or backoff wait.
func Call[T any](ctx context.Context, p *Pool, source, name string, op func(context.Context) (T, error)) fetch.Result[T] {
	return fetch.Do(ctx, p.fetcher, name, func(ctx context.Context) (T, error) {
		var zero T
		if err := p.pacer.Wait(ctx, source); err != nil {
			return zero, err
		}
		release, err := p.acquire(ctx)
		if err != nil {
			return zero, err
		}
		defer release()
		return op(ctx)
	})
}

type page[T any] struct {
	next  string
	items []T
}

// Paginate enumerates pages in source order and stops as soon as limit items are held.
// The last page is truncated to the bound. A failure after at least one item was
// collected yields a failed result that keeps the partial items.
func Paginate[T any](ctx context.Context, p *Pool, source, name string, limit int, fn PageFunc[T]) fetch.Result[[]T] {
	items := []T{}
	if limit <= 0 {
		return fetch.Success(items)
	}

	cursor := ""
	for {
		r := Call(ctx, p, source, name, func(ctx context.Context) (page[T], error) {
			got, next, err := fn(ctx, cursor)
			return page[T]{items: got, next: next}, err
		})
		pg, ok := r.Get()
		if !ok {
			err := fmt.Errorf("paginate %s after %d items: %w", name, len(items), r.Err())
			if len(items) > 0 {
				return fetch.FailedWithPartial(err, r.Failure.Attempts, items)
			}
			return fetch.Failed[[]T](err, r.Failure.Attempts)
		}

		if room := limit - len(items); len(pg.items) > room {
			pg.items = pg.items[:room]
		}
		items = append(items, pg.items...)

		if len(items) >= limit || pg.next == "" || pg.next == cursor {
			return fetch.Success(items)
		}
		cursor = pg.next
	}
}

func guard[T any](ctx context.Context, logger *slog.Logger, task Task[T]) (res fetch.Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "task panicked", "panic", r, "stack", string(debug.Stack()))
			res = fetch.Failed[T](fmt.Errorf("task panicked: %v", r), 0)
		}
	}()
	return task(ctx)
}
