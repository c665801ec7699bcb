package collect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultSpacing is the minimum gap between consecutive calls to one source.
const DefaultSpacing = 500 * time.Millisecond

// Pacer enforces a minimum spacing between calls to the same source.
// Each source key gets its own limiter with a burst of one.
type Pacer struct {
	limiters sync.Map // source -> *rate.Limiter
	spacing  time.Duration
}

// NewPacer creates a pacer. A zero spacing disables pacing.
func NewPacer(spacing time.Duration) *Pacer {
	return &Pacer{spacing: spacing}
}

// Wait blocks until a call to source may proceed or ctx is done.
func (p *Pacer) Wait(ctx context.Context, source string) error {
	if p.spacing <= 0 {
		return ctx.Err()
	}
	v, _ := p.limiters.LoadOrStore(source, rate.NewLimiter(rate.Every(p.spacing), 1))
	lim, ok := v.(*rate.Limiter)
	if !ok {
		return nil
	}
	err := lim.Wait(ctx)
	if err != nil && ctx.Err() == nil {
		// The limiter refuses waits that would outlive the deadline without
		// returning a context error.
		if _, ok := ctx.Deadline(); ok {
			return fmt.Errorf("pace %s: %w: %w", source, context.DeadlineExceeded, err)
		}
	}
	return err
}
