// Package whois looks up domain registration records.
package whois

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lwhois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

const defaultTimeout = 15 * time.Second

// QueryFunc returns the raw WHOIS text for a domain.
type QueryFunc func(domain string) (string, error)

// Client performs WHOIS lookups.
type Client struct {
	query  QueryFunc
	logger *slog.Logger
}

type config struct {
	query   QueryFunc
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Client.
type Option func(*config)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithTimeout sets the network timeout of one query.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithQuery replaces the network query. Used by tests.
func WithQuery(q QueryFunc) Option {
	return func(c *config) { c.query = q }
}

// New creates a WHOIS client.
func New(opts ...Option) *Client {
	cfg := &config{logger: slog.Default(), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.query == nil {
		wc := lwhois.NewClient().SetTimeout(cfg.timeout)
		cfg.query = func(domain string) (string, error) { return wc.Whois(domain) }
	}
	return &Client{query: cfg.query, logger: cfg.logger}
}

// Lookup queries and parses the registration record of domain.
// The underlying client is not context-aware, so cancellation abandons the query.
func (c *Client) Lookup(ctx context.Context, domain string) (*profile.WhoisRecord, error) {
	type answer struct {
		err error
		raw string
	}
	ch := make(chan answer, 1)
	go func() {
		raw, err := c.query(domain)
		ch <- answer{raw: raw, err: err}
	}()

	var a answer
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("whois %s: %w", domain, ctx.Err())
	case a = <-ch:
	}
	if a.err != nil {
		return nil, fmt.Errorf("whois %s: %w", domain, classify(a.err, a.raw, profile.ErrTransient))
	}

	c.logger.DebugContext(ctx, "whois response", "domain", domain, "bytes", len(a.raw))
	return Parse(a.raw)
}

// Parse extracts the fields of interest from raw WHOIS text.
func Parse(raw string) (*profile.WhoisRecord, error) {
	info, err := whoisparser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse whois: %w", classify(err, raw, profile.ErrParse))
	}

	rec := &profile.WhoisRecord{}
	if info.Registrar != nil {
		rec.Registrar = firstNonEmpty(info.Registrar.Name, info.Registrar.Organization)
	}
	if info.Domain != nil {
		rec.CreationDate = info.Domain.CreatedDate
		rec.ExpirationDate = info.Domain.ExpirationDate
	}
	if info.Registrant != nil {
		rec.Country = info.Registrant.Country
	}

	seen := make(map[string]bool)
	for _, c := range []*whoisparser.Contact{info.Registrar, info.Registrant, info.Administrative, info.Technical, info.Billing} {
		if c == nil || c.Email == "" || seen[c.Email] {
			continue
		}
		seen[c.Email] = true
		rec.Emails = append(rec.Emails, c.Email)
	}
	return rec, nil
}

// classify maps library and server responses onto profile sentinels.
// Errors it does not recognize are wrapped with fallback.
func classify(err error, raw string, fallback error) error {
	switch {
	case errors.Is(err, whoisparser.ErrDomainLimitExceed), isQueryLimit(raw), isQueryLimit(err.Error()):
		return fmt.Errorf("%w: %w", profile.ErrRateLimited, err)
	case errors.Is(err, whoisparser.ErrNotFoundDomain):
		return fmt.Errorf("%w: %w", profile.ErrNotFound, err)
	case errors.Is(err, whoisparser.ErrDomainDataInvalid),
		errors.Is(err, whoisparser.ErrReservedDomain),
		errors.Is(err, whoisparser.ErrPremiumDomain),
		errors.Is(err, whoisparser.ErrBlockedDomain):
		return fmt.Errorf("%w: %w", profile.ErrParse, err)
	default:
		return fmt.Errorf("%w: %w", fallback, err)
	}
}

func isQueryLimit(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "limit exceeded") ||
		strings.Contains(s, "query rate") ||
		strings.Contains(s, "too many requests")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
