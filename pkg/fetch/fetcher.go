package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// DefaultBackoff is the flat wait applied after a throttled attempt.
const DefaultBackoff = 60 * time.Second

// Policy controls how an operation is retried.
type Policy struct {
	RetryOn     []Kind
	MaxAttempts int
	Backoff     time.Duration
	// Exponential doubles the wait after every retry instead of keeping it flat.
	Exponential bool
}

// DefaultPolicy retries throttling and transient network errors three times with a flat backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     DefaultBackoff,
		RetryOn:     []Kind{KindRateLimited, KindTransient},
	}
}

// Retryable reports whether a failure of kind k should be retried.
func (p Policy) Retryable(k Kind) bool {
	return slices.Contains(p.RetryOn, k)
}

// State tracks one attempt sequence. It is discarded once Do returns.
type State struct {
	NextEligible time.Time
	LastErr      error
	Attempt      int
}

// Observer receives per-attempt and per-fetch events.
type Observer interface {
	Attempt(op string, kind Kind)
	Done(op string, status Status, attempts int)
}

// Fetcher applies a Policy to network operations.
type Fetcher struct {
	observer Observer
	logger   *slog.Logger
	policy   Policy
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// WithObserver reports attempts and outcomes to o.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) { f.observer = o }
}

// New creates a Fetcher for the given policy.
func New(p Policy, opts ...Option) *Fetcher {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	f := &Fetcher{policy: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy returns the retry policy in effect.
func (f *Fetcher) Policy() Policy { return f.policy }

// Do executes op, retrying retryable failures with the fetcher's backoff until
// MaxAttempts is reached. Cancelling ctx interrupts a backoff wait; the Result then
// reports the cancellation together with the attempts made so far.
func Do[T any](ctx context.Context, f *Fetcher, name string, op func(context.Context) (T, error)) Result[T] {
	st := &State{}
	delayType := retry.FixedDelay
	if f.policy.Exponential {
		delayType = retry.BackOffDelay
	}

	v, err := retry.DoWithData(
		func() (T, error) {
			st.Attempt++
			v, err := op(ctx)
			st.LastErr = err
			if err != nil && f.observer != nil {
				f.observer.Attempt(name, KindOf(err))
			}
			return v, err
		},
		retry.Context(ctx),
		retry.Attempts(uint(f.policy.MaxAttempts)), //nolint:gosec // MaxAttempts is clamped to >= 1 in New
		retry.Delay(f.policy.Backoff),
		retry.DelayType(delayType),
		retry.RetryIf(func(err error) bool { return f.policy.Retryable(KindOf(err)) }),
		retry.OnRetry(func(n uint, err error) {
			st.NextEligible = time.Now().Add(f.policy.Backoff)
			f.logger.WarnContext(ctx, "retrying after backoff",
				"op", name, "attempt", n+1, "max_attempts", f.policy.MaxAttempts,
				"backoff", f.policy.Backoff, "error", err)
		}),
	)

	last := st.LastErr
	if last == nil {
		last = err
	}

	var res Result[T]
	switch {
	case err == nil:
		res = Success(v)
	case ctx.Err() != nil && !isContextKind(KindOf(last)):
		// Interrupted while waiting out a backoff.
		res = Failed[T](fmt.Errorf("%s: %w (last error: %v)", name, ctx.Err(), last), st.Attempt)
	default:
		res = Failed[T](fmt.Errorf("%s: %w", name, last), st.Attempt)
	}

	if f.observer != nil {
		f.observer.Done(name, res.Status, st.Attempt)
	}
	if !res.OK() {
		f.logger.DebugContext(ctx, "fetch failed", "op", name, "kind", res.Failure.Kind, "attempts", st.Attempt)
	}
	return res
}

func isContextKind(k Kind) bool {
	return k == KindCancelled || k == KindTimeout
}
