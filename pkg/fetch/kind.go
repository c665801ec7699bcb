package fetch

import (
	"context"
	"errors"
	"net"

	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

// Kind classifies a failure.
type Kind string

// Failure kinds.
const (
	KindNotFound     Kind = "not_found"
	KindRateLimited  Kind = "rate_limited"
	KindTransient    Kind = "transient"
	KindParse        Kind = "parse"
	KindAuthRequired Kind = "auth_required"
	KindTimeout      Kind = "timeout"
	KindCancelled    Kind = "cancelled"
	KindUnknown      Kind = "unknown"
)

// KindOf classifies err. Sentinels from the profile package take precedence over
// context and network errors so that a wrapped rate-limit is never mistaken for a timeout.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) && f.Kind != "" {
		return f.Kind
	}
	switch {
	case errors.Is(err, profile.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, profile.ErrNotFound):
		return KindNotFound
	case errors.Is(err, profile.ErrAuthRequired):
		return KindAuthRequired
	case errors.Is(err, profile.ErrParse):
		return KindParse
	case errors.Is(err, profile.ErrTransient):
		return KindTransient
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnknown
}
