// Package collect fans independent fetch tasks out over a bounded worker pool and
// joins their results with per-task failure isolation.
package collect

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
)

// DefaultWidth is the number of tasks and network calls allowed in flight at once.
const DefaultWidth = 5

// ErrClosed is returned by calls made after the pool was closed.
var ErrClosed = errors.New("pool closed")

// Options configures a Pool.
type Options struct {
	Fetcher *fetch.Fetcher
	Logger  *slog.Logger
	// Width bounds concurrently running tasks per fan-out and in-flight network calls overall.
	Width int
	// Spacing is the minimum gap between consecutive calls to the same source.
	Spacing time.Duration
}

// Pool is the scoped worker pool for one analysis run.
// It must be closed when the run ends.
type Pool struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
	sem     *semaphore.Weighted
	pacer   *Pacer
	width   int
	closed  atomic.Bool
}

// NewPool creates a pool from opts, filling in defaults.
func NewPool(opts Options) *Pool {
	if opts.Width < 1 {
		opts.Width = DefaultWidth
	}
	if opts.Spacing < 0 {
		opts.Spacing = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetch.New(fetch.DefaultPolicy(), fetch.WithLogger(opts.Logger))
	}
	return &Pool{
		fetcher: opts.Fetcher,
		logger:  opts.Logger,
		sem:     semaphore.NewWeighted(int64(opts.Width)),
		pacer:   NewPacer(opts.Spacing),
		width:   opts.Width,
	}
}

// Width returns the pool's concurrency bound.
func (p *Pool) Width() int { return p.width }

// Fetcher returns the retry runner used for network calls.
func (p *Pool) Fetcher() *fetch.Fetcher { return p.fetcher }

// Close releases the pool. Calls issued afterwards fail with ErrClosed.
func (p *Pool) Close() {
	p.closed.Store(true)
}

// acquire reserves one network slot. The slot is held for a single attempt only.
func (p *Pool) acquire(ctx context.Context) (func(), error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { p.sem.Release(1) }, nil
}
