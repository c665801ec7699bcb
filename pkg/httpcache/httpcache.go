// Package httpcache provides the shared HTTP session used by every web-facing source:
// a bounded transport, in-run response dedupe with thundering herd prevention,
// redirect-chain fetches and presence probes.
package httpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"

	"github.com/codeGROOVE-dev/sleuth/pkg/htmlutil"
	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

// UserAgent is the standard browser User-Agent string for all requests.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"

const (
	defaultTimeout  = 10 * time.Second
	defaultMaxBody  = 2 << 20
	defaultMaxConns = 5
	maxRedirects    = 10
)

// Stats tracks dedupe hit/miss statistics.
type Stats struct {
	Hits   int64
	Misses int64
}

// HTTPError represents a non-OK HTTP response. It unwraps to the matching
// sentinel from the profile package so callers can classify it.
// Body holds the response body when one was read, so API clients can decode
// provider-specific error payloads.
type HTTPError struct {
	URL        string
	Body       []byte
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// Unwrap maps the status code onto a profile sentinel.
func (e *HTTPError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return profile.ErrRateLimited
	case e.StatusCode == http.StatusNotFound, e.StatusCode == http.StatusGone:
		return profile.ErrNotFound
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return profile.ErrAuthRequired
	case e.StatusCode >= 500:
		return profile.ErrTransient
	default:
		return nil
	}
}

// Session is safe for concurrent use.
type Session struct {
	cache     *sfcache.TieredCache[string, []byte]
	client    *http.Client
	logger    *slog.Logger
	userAgent string
	maxBody   int64
	hits      atomic.Int64
	misses    atomic.Int64
}

type config struct {
	jar       http.CookieJar
	logger    *slog.Logger
	transport http.RoundTripper
	userAgent string
	timeout   time.Duration
	maxBody   int64
	maxConns  int
}

// Option configures a Session.
type Option func(*config)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMaxConns bounds the connections per host; it normally matches the worker pool width.
func WithMaxConns(n int) Option {
	return func(c *config) { c.maxConns = n }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMaxBody caps how many body bytes are read per response.
func WithMaxBody(n int64) Option {
	return func(c *config) { c.maxBody = n }
}

// WithCookieJar attaches cookies to outgoing requests.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *config) { c.jar = jar }
}

// WithTransport replaces the bounded default transport. Used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *config) { c.transport = rt }
}

// WithUserAgent overrides UserAgent.
func WithUserAgent(ua string) Option {
	return func(c *config) { c.userAgent = ua }
}

// New creates a Session. Responses are deduplicated in memory for the lifetime of
// the session only; nothing is persisted.
func New(opts ...Option) *Session {
	cfg := &config{
		logger:    slog.Default(),
		timeout:   defaultTimeout,
		maxBody:   defaultMaxBody,
		maxConns:  defaultMaxConns,
		userAgent: UserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.transport == nil {
		t, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			t = &http.Transport{}
		}
		t = t.Clone()
		t.MaxConnsPerHost = cfg.maxConns
		t.MaxIdleConnsPerHost = cfg.maxConns
		cfg.transport = t
	}

	tc, err := sfcache.NewTiered[string, []byte](null.New[string, []byte]())
	if err != nil {
		panic("sfcache.NewTiered with null store: " + err.Error())
	}

	return &Session{
		cache: tc,
		client: &http.Client{
			Jar:       cfg.jar,
			Timeout:   cfg.timeout,
			Transport: cfg.transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:    cfg.logger,
		userAgent: cfg.userAgent,
		maxBody:   cfg.maxBody,
	}
}

// Stats returns the dedupe statistics for this session.
func (s *Session) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// URLToKey converts a URL to a cache key using SHA256 hash.
func URLToKey(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(hash[:])
}

// Validator inspects a 200 OK body before it is shared. A non-nil error fails the
// request and keeps the body out of the dedupe tier.
type Validator func(body []byte) error

// Get fetches rawURL and returns its body when the response is 200 OK.
// Concurrent and repeated requests for the same URL within a session share one
// network call; failures are never cached.
func (s *Session) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	return s.GetValidated(ctx, rawURL, header, nil)
}

// GetValidated is Get with a validate hook that runs on the 200 OK body inside the
// shared network call. Bodies it rejects are returned as errors and never cached, so
// a retry reaches the network again.
func (s *Session) GetValidated(ctx context.Context, rawURL string, header http.Header, validate Validator) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	key := rawURL
	if s.client.Jar != nil && len(s.client.Jar.Cookies(u)) > 0 {
		key += "|auth"
	}

	var fetched bool
	body, err := s.cache.GetSet(ctx, URLToKey(key), func(ctx context.Context) ([]byte, error) {
		fetched = true
		s.misses.Add(1)
		s.logger.DebugContext(ctx, "fetching", "url", rawURL)
		resp, _, err := s.do(ctx, http.MethodGet, rawURL, header, false)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close() //nolint:errcheck // read-only body
		if resp.StatusCode != http.StatusOK {
			body, _ := s.read(resp) //nolint:errcheck // the status code is the error
			return nil, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode, Body: body}
		}
		body, err := s.read(resp)
		if err != nil {
			return nil, err
		}
		if validate != nil {
			if err := validate(body); err != nil {
				return nil, err
			}
		}
		return body, nil
	})
	if !fetched && err == nil {
		s.hits.Add(1)
		s.logger.DebugContext(ctx, "dedupe hit", "url", rawURL)
	}
	return body, err
}

// Fetch GETs rawURL, following HTTP redirects, and returns the final response with the
// chain of URLs visited before it. Non-OK responses are returned as data, except 429
// and 5xx which are reported as errors so that they can be retried.
func (s *Session) Fetch(ctx context.Context, rawURL string) (*profile.Page, error) {
	resp, chain, err := s.do(ctx, http.MethodGet, rawURL, nil, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	final := resp.Request.URL.String()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &HTTPError{URL: final, StatusCode: resp.StatusCode}
	}
	body, err := s.read(resp)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return &profile.Page{
		URL:           final,
		StatusCode:    resp.StatusCode,
		Headers:       headers,
		Body:          body,
		RedirectChain: chain,
	}, nil
}

// Probe sends a HEAD request, following redirects, and returns the final status code.
func (s *Session) Probe(ctx context.Context, rawURL string) (int, error) {
	resp, _, err := s.do(ctx, http.MethodHead, rawURL, nil, true)
	if err != nil {
		return 0, err
	}
	resp.Body.Close() //nolint:errcheck,gosec // HEAD has no body
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return resp.StatusCode, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp.StatusCode, nil
}

// do issues one request. When follow is set it walks 3xx responses manually so the
// redirect chain can be recorded.
func (s *Session) do(ctx context.Context, method, rawURL string, header http.Header, follow bool) (*http.Response, []string, error) {
	chain := []string{}
	current := rawURL
	for range maxRedirects + 1 {
		req, err := http.NewRequestWithContext(ctx, method, current, http.NoBody)
		if err != nil {
			return nil, chain, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", s.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := s.client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, chain, fmt.Errorf("%s %s: %w", method, current, ctxErr)
			}
			return nil, chain, fmt.Errorf("%s %s: %w: %w", method, current, profile.ErrTransient, err)
		}

		location := resp.Header.Get("Location")
		if !follow || resp.StatusCode < 300 || resp.StatusCode >= 400 || location == "" {
			return resp, chain, nil
		}
		resp.Body.Close() //nolint:errcheck,gosec // redirect body is discarded

		next := htmlutil.ResolveRelativeURL(current, location)
		s.logger.DebugContext(ctx, "following HTTP redirect", "from", current, "to", next, "status", resp.StatusCode)
		chain = append(chain, current)
		current = next
	}
	return nil, chain, fmt.Errorf("fetch %s: stopped after %d redirects", rawURL, maxRedirects)
}

func (s *Session) read(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return nil, fmt.Errorf("read body: %w: %w", profile.ErrTransient, err)
	}
	return body, nil
}
