// Package recon assembles a Report for one target from every configured source.
//
// The primary profile is fetched first and alone; every other branch is fanned out
// through a scoped collect.Pool and degrades to an explicit Result instead of
// failing the analysis.
package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeGROOVE-dev/sleuth/pkg/collect"
	"github.com/codeGROOVE-dev/sleuth/pkg/config"
	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
	"github.com/codeGROOVE-dev/sleuth/pkg/report"
	"github.com/codeGROOVE-dev/sleuth/pkg/score"
)

// Pacing keys for sources that are not per-host.
const (
	sourceGraph   = "graph"
	sourceWhois   = "whois"
	sourceDNS     = "dns"
	sourceArchive = "archive"
)

// ErrEmptyHandle is returned when Analyze is called without a target.
var ErrEmptyHandle = errors.New("empty handle")

// Graph is the social-graph source. Page methods take the cursor returned by the
// previous page, starting from "".
type Graph interface {
	Profile(ctx context.Context, handle string) (*profile.Profile, error)
	Followers(ctx context.Context, handle, cursor string) (*profile.HandlePage, error)
	Followees(ctx context.Context, handle, cursor string) (*profile.HandlePage, error)
	Posts(ctx context.Context, handle, cursor string) (*profile.PostPage, error)
}

// Web fetches pages and probes profile URLs.
type Web interface {
	Fetch(ctx context.Context, url string) (*profile.Page, error)
	Probe(ctx context.Context, url string) (int, error)
}

// Whois looks up domain registration records.
type Whois interface {
	Lookup(ctx context.Context, domain string) (*profile.WhoisRecord, error)
}

// Resolver answers DNS queries, one record type at a time.
type Resolver interface {
	Resolve(ctx context.Context, domain, recordType string) ([]string, error)
}

// Archive reports web-archive snapshots of a domain.
type Archive interface {
	Snapshot(ctx context.Context, domain string) (*profile.Snapshot, error)
}

// Error reports that the primary profile could not be fetched, so no report exists.
type Error struct {
	Failure *fetch.Failure
	Handle  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("analyze %s: %s after %d attempts: %s", e.Handle, e.Failure.Kind, e.Failure.Attempts, e.Failure.Message)
}

func (e *Error) Unwrap() error { return e.Failure }

// Analyzer runs analyses. It holds no per-run state and is safe for concurrent use.
type Analyzer struct {
	graph    Graph
	web      Web
	whois    Whois
	resolver Resolver
	archive  Archive
	observer fetch.Observer
	logger   *slog.Logger
	now      func() time.Time
	cfg      config.Config
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWeb enables the external-link and presence branches.
func WithWeb(w Web) Option {
	return func(a *Analyzer) { a.web = w }
}

// WithWhois enables WHOIS lookups.
func WithWhois(w Whois) Option {
	return func(a *Analyzer) { a.whois = w }
}

// WithResolver enables DNS lookups.
func WithResolver(r Resolver) Option {
	return func(a *Analyzer) { a.resolver = r }
}

// WithArchive enables web-archive lookups.
func WithArchive(ar Archive) Option {
	return func(a *Analyzer) { a.archive = ar }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg config.Config) Option {
	return func(a *Analyzer) { a.cfg = cfg }
}

// WithObserver reports every fetch attempt and outcome to o.
func WithObserver(o fetch.Observer) Option {
	return func(a *Analyzer) { a.observer = o }
}

// WithClock overrides the time source used for timestamps and account age.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates an Analyzer over graph. Every other source is optional; a missing one
// yields Skipped("source_unavailable") where it would have been used.
func New(graph Graph, opts ...Option) *Analyzer {
	a := &Analyzer{
		graph:  graph,
		logger: slog.Default(),
		now:    time.Now,
		cfg:    config.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// run carries the state of one Analyze call.
type run struct {
	*Analyzer
	pool  *collect.Pool
	p     *profile.Profile
	depth int
}

// Analyze fetches handle and everything reachable from it up to depth. Depth 0
// covers the target's own followers, followees, footprint and posts, with
// common-followed and second-degree marked depth_not_reached. Depth 1 adds the
// common-followed tally over the sampled followees; depth 2 and above also add
// second-degree follower expansion. A nil report is returned only when the
// primary profile fetch fails, with a *Error.
func (a *Analyzer) Analyze(ctx context.Context, handle string, depth int) (*report.Report, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil, ErrEmptyHandle
	}

	fopts := []fetch.Option{fetch.WithLogger(a.logger)}
	if a.observer != nil {
		fopts = append(fopts, fetch.WithObserver(a.observer))
	}
	pool := collect.NewPool(collect.Options{
		Fetcher: fetch.New(a.cfg.Policy(), fopts...),
		Logger:  a.logger,
		Width:   a.cfg.Workers,
		Spacing: a.cfg.Spacing,
	})
	defer pool.Close()

	start := a.now()
	a.logger.InfoContext(ctx, "analysis started", "handle", handle, "depth", depth, "workers", pool.Width())

	primary := collect.Call(ctx, pool, sourceGraph, "profile:"+handle, func(ctx context.Context) (*profile.Profile, error) {
		return a.graph.Profile(ctx, handle)
	})
	p, ok := primary.Get()
	if ok && p == nil {
		primary = fetch.Failed[*profile.Profile](profile.ErrProfileNotFound, 1)
	}
	if primary.Failure != nil {
		a.logger.ErrorContext(ctx, "primary profile fetch failed", "handle", handle, "kind", primary.Failure.Kind)
		return nil, &Error{Handle: handle, Failure: primary.Failure}
	}

	r := &report.Report{
		ID:        uuid.NewString(),
		Target:    handle,
		Timestamp: start.UTC(),
		Depth:     depth,
		Profile:   p,
		Scores:    score.Compute(p),
	}

	if p.Private {
		a.logger.InfoContext(ctx, "account is private, secondary branches skipped", "handle", handle)
		r.Network = fetch.Skipped[report.Network](fetch.ReasonPrivate)
		r.Footprint = fetch.Skipped[report.Footprint](fetch.ReasonPrivate)
		r.Timeline = fetch.Skipped[report.Timeline](fetch.ReasonPrivate)
		r.Behavior = fetch.Skipped[report.Behavior](fetch.ReasonPrivate)
		return r, nil
	}

	rn := &run{Analyzer: a, pool: pool, p: p, depth: depth}
	collect.All(ctx, pool,
		collect.Into(&r.Network, rn.network),
		collect.Into(&r.Footprint, rn.footprint),
		collect.Into(&r.Timeline, rn.timeline),
		collect.Into(&r.Behavior, rn.behavior),
	)

	a.logger.InfoContext(ctx, "analysis finished",
		"handle", handle,
		"network", r.Network.Status,
		"footprint", r.Footprint.Status,
		"timeline", r.Timeline.Status,
		"behavior", r.Behavior.Status,
		"elapsed", a.now().Sub(start),
	)
	return r, nil
}

// warnFailed logs a branch-level failure; it never changes the result.
func warnFailed[T any](ctx context.Context, logger *slog.Logger, branch string, r fetch.Result[T]) fetch.Result[T] {
	if r.Status == fetch.StatusFailed {
		logger.WarnContext(ctx, "branch failed", "branch", branch, "kind", r.Failure.Kind,
			"attempts", r.Failure.Attempts, "partial", r.Partial, "error", r.Failure.Message)
	}
	return r
}
