// Package resolver queries DNS record sets, one record type per query.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

// DefaultTypes are the record types gathered for a domain.
var DefaultTypes = []string{"A", "AAAA", "MX", "TXT", "NS"}

const (
	fallbackServer = "8.8.8.8:53"
	defaultTimeout = 5 * time.Second
)

// Client resolves records against a single upstream server.
type Client struct {
	udp    *dns.Client
	tcp    *dns.Client
	logger *slog.Logger
	server string
}

type config struct {
	logger  *slog.Logger
	server  string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*config)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithServer sets the upstream server as host or host:port.
func WithServer(addr string) Option {
	return func(c *config) { c.server = addr }
}

// WithTimeout sets the timeout of one exchange.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New creates a resolver. Without WithServer it uses the first nameserver from
// /etc/resolv.conf, falling back to a public resolver.
func New(opts ...Option) *Client {
	cfg := &config{logger: slog.Default(), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.server == "" {
		cfg.server = systemServer()
	}
	if _, _, err := net.SplitHostPort(cfg.server); err != nil {
		cfg.server = net.JoinHostPort(cfg.server, "53")
	}
	return &Client{
		udp:    &dns.Client{Net: "udp", Timeout: cfg.timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: cfg.timeout},
		logger: cfg.logger,
		server: cfg.server,
	}
}

func systemServer() string {
	cc, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cc.Servers) == 0 {
		return fallbackServer
	}
	return net.JoinHostPort(cc.Servers[0], cc.Port)
}

// Resolve returns the records of recordType for domain, rendered as strings.
// A nonexistent name or an empty answer is an empty list, not an error.
func (c *Client) Resolve(ctx context.Context, domain, recordType string) ([]string, error) {
	qtype, ok := dns.StringToType[strings.ToUpper(recordType)]
	if !ok {
		return nil, fmt.Errorf("resolve %s: unsupported record type %q: %w", domain, recordType, profile.ErrParse)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	in, rtt, err := c.udp.ExchangeContext(ctx, msg, c.server)
	if err == nil && in.Truncated {
		c.logger.DebugContext(ctx, "truncated answer, retrying over tcp", "domain", domain, "type", recordType)
		in, rtt, err = c.tcp.ExchangeContext(ctx, msg, c.server)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("resolve %s %s: %w", domain, recordType, ctxErr)
		}
		return nil, fmt.Errorf("resolve %s %s: %w: %w", domain, recordType, profile.ErrTransient, err)
	}
	c.logger.DebugContext(ctx, "dns answer", "domain", domain, "type", recordType, "rcode", dns.RcodeToString[in.Rcode], "rtt", rtt)

	switch in.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
	case dns.RcodeServerFailure, dns.RcodeRefused:
		return nil, fmt.Errorf("resolve %s %s: %s: %w", domain, recordType, dns.RcodeToString[in.Rcode], profile.ErrTransient)
	default:
		return nil, fmt.Errorf("resolve %s %s: %s: %w", domain, recordType, dns.RcodeToString[in.Rcode], profile.ErrParse)
	}

	out := []string{}
	for _, rr := range in.Answer {
		if rr.Header().Rrtype != qtype {
			continue
		}
		out = append(out, format(rr))
	}
	return out, nil
}

func format(rr dns.RR) string {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String()
	case *dns.AAAA:
		return v.AAAA.String()
	case *dns.MX:
		return fmt.Sprintf("%d %s", v.Preference, v.Mx)
	case *dns.TXT:
		return strings.Join(v.Txt, "")
	case *dns.NS:
		return v.Ns
	case *dns.CNAME:
		return v.Target
	default:
		return strings.TrimSpace(strings.TrimPrefix(rr.String(), rr.Header().String()))
	}
}
