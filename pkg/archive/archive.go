// Package archive queries the Wayback Machine availability API.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/codeGROOVE-dev/sleuth/pkg/httpcache"
	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

const defaultBaseURL = "https://archive.org/wayback/available"

// Client looks up archived snapshots of a domain.
type Client struct {
	session *httpcache.Session
	logger  *slog.Logger
	baseURL string
}

type config struct {
	logger  *slog.Logger
	baseURL string
}

// Option configures a Client.
type Option func(*config)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL points the client at a different availability endpoint.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// New creates an archive client that issues requests through session.
func New(session *httpcache.Session, opts ...Option) *Client {
	cfg := &config{logger: slog.Default(), baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{session: session, logger: cfg.logger, baseURL: cfg.baseURL}
}

type availability struct {
	ArchivedSnapshots struct {
		Closest *struct {
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
			Status    string `json:"status"`
			Available bool   `json:"available"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// Snapshot returns the closest archived snapshot of domain. The availability API
// reports at most one snapshot, so Count is 0 or 1.
func (c *Client) Snapshot(ctx context.Context, domain string) (*profile.Snapshot, error) {
	u := c.baseURL + "?url=" + url.QueryEscape(domain)
	body, err := c.session.Get(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}

	var resp availability
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode archive response: %w: %w", profile.ErrParse, err)
	}

	snap := &profile.Snapshot{}
	if cl := resp.ArchivedSnapshots.Closest; cl != nil && cl.Available {
		snap.ClosestURL = cl.URL
		snap.Timestamp = cl.Timestamp
		snap.Count = 1
	}
	c.logger.DebugContext(ctx, "archive lookup", "domain", domain, "snapshots", snap.Count)
	return snap, nil
}
