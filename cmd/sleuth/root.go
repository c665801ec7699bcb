package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/sleuth/pkg/archive"
	"github.com/codeGROOVE-dev/sleuth/pkg/auth"
	"github.com/codeGROOVE-dev/sleuth/pkg/config"
	"github.com/codeGROOVE-dev/sleuth/pkg/httpcache"
	"github.com/codeGROOVE-dev/sleuth/pkg/instagram"
	"github.com/codeGROOVE-dev/sleuth/pkg/recon"
	"github.com/codeGROOVE-dev/sleuth/pkg/report"
	"github.com/codeGROOVE-dev/sleuth/pkg/resolver"
	"github.com/codeGROOVE-dev/sleuth/pkg/stats"
	"github.com/codeGROOVE-dev/sleuth/pkg/whois"
)

var errBadDepth = errors.New("depth must not be negative")

type options struct {
	session        string
	out            string
	configPath     string
	metricsFile    string
	timeout        time.Duration
	depth          int
	browserCookies bool
	noReport       bool
	json           bool
	debug          bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "sleuth <handle>",
		Short: "Build an intelligence report for an Instagram account",
		Long: `sleuth fetches a public Instagram profile and fans out over its followers,
followees, posts, external link and domain, then writes a JSON and HTML report.

Authentication is optional. Session cookies are taken from --session, then from
the INSTAGRAM_SESSIONID / INSTAGRAM_CSRFTOKEN / INSTAGRAM_DS_USER_ID environment
variables, then from local browser stores when --browser-cookies is set.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(*cobra.Command, []string) error {
			if o.depth < 0 {
				return fmt.Errorf("--depth %d: %w", o.depth, errBadDepth)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o, args[0], stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.depth, "depth", 2, "analysis depth: 1 adds common-followed accounts, 2 adds second-degree followers")
	f.StringVar(&o.session, "session", "", "cookie file (JSON or cookies.txt) or raw sessionid value")
	f.BoolVar(&o.browserCookies, "browser-cookies", false, "read the Instagram session from local browser cookie stores")
	f.BoolVar(&o.noReport, "no-report", false, "do not write report files")
	f.StringVar(&o.out, "out", ".", "directory for report files")
	f.BoolVar(&o.json, "json", false, "print the report as JSON on stdout")
	f.StringVar(&o.configPath, "config", "", "YAML configuration file")
	f.DurationVar(&o.timeout, "timeout", 0, "overall deadline for the analysis (0 for none)")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write fetch metrics in Prometheus text format to this file")
	f.BoolVar(&o.debug, "debug", false, "enable debug logging")
	return cmd
}

func run(ctx context.Context, o *options, handle string, stdout, stderr io.Writer) error {
	logLevel := slog.LevelInfo
	if o.debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	sessionOpts := []httpcache.Option{
		httpcache.WithLogger(logger),
		httpcache.WithTimeout(cfg.HTTPTimeout),
		httpcache.WithMaxBody(cfg.MaxBodyBytes),
		httpcache.WithMaxConns(cfg.Workers),
	}
	sources := []auth.Source{auth.FromRef(o.session), auth.EnvSource{}}
	if o.browserCookies {
		sources = append(sources, auth.NewBrowserSource(logger))
	}
	cookies, err := auth.ChainSources(ctx, sources...)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if len(cookies) > 0 {
		jar, err := auth.NewCookieJar(auth.Domain, cookies)
		if err != nil {
			return fmt.Errorf("create cookie jar: %w", err)
		}
		sessionOpts = append(sessionOpts, httpcache.WithCookieJar(jar))
		logger.DebugContext(ctx, "using Instagram session", "cookies", len(cookies))
	} else {
		logger.InfoContext(ctx, "no Instagram session found, continuing unauthenticated")
	}
	session := httpcache.New(sessionOpts...)

	rec := stats.New()
	a := recon.New(instagram.New(session, instagram.WithLogger(logger)),
		recon.WithWeb(session),
		recon.WithWhois(whois.New(whois.WithLogger(logger), whois.WithTimeout(cfg.WhoisTimeout))),
		recon.WithResolver(resolver.New(
			resolver.WithLogger(logger),
			resolver.WithServer(cfg.DNSServer),
			resolver.WithTimeout(cfg.DNSTimeout),
		)),
		recon.WithArchive(archive.New(session, archive.WithLogger(logger))),
		recon.WithConfig(cfg),
		recon.WithObserver(rec),
		recon.WithLogger(logger),
	)

	r, err := a.Analyze(ctx, handle, o.depth)
	logger.DebugContext(ctx, "fetch summary", "outcomes", rec.String())
	if o.metricsFile != "" {
		if werr := rec.WriteTextfile(o.metricsFile); werr != nil {
			logger.WarnContext(ctx, "failed to write metrics", "path", o.metricsFile, "error", werr)
		}
	}
	if err != nil {
		return err
	}

	if o.json {
		if err := report.WriteJSON(stdout, r); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if o.noReport {
		return nil
	}
	paths, err := report.Save(o.out, r)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	for _, p := range paths {
		logger.InfoContext(ctx, "report written", "path", p)
	}
	return nil
}
