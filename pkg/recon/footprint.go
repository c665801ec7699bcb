package recon

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/sleuth/pkg/collect"
	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
	"github.com/codeGROOVE-dev/sleuth/pkg/htmlutil"
	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
	"github.com/codeGROOVE-dev/sleuth/pkg/report"
	"github.com/codeGROOVE-dev/sleuth/pkg/score"
)

func (rn *run) footprint(ctx context.Context) fetch.Result[report.Footprint] {
	f := report.Footprint{
		Emails: score.Emails(rn.p.Biography),
		Phones: score.Phones(rn.p.Biography),
	}

	platforms := make([]string, 0, len(rn.cfg.Platforms))
	for name := range rn.cfg.Platforms {
		platforms = append(platforms, name)
	}
	slices.Sort(platforms)
	presence := make([]fetch.Result[report.Presence], len(platforms))

	jobs := make([]collect.Job, 0, len(platforms)+2)
	for i, name := range platforms {
		target := fmt.Sprintf(rn.cfg.Platforms[name], url.PathEscape(rn.p.Handle))
		jobs = append(jobs, collect.Into(&presence[i], func(ctx context.Context) fetch.Result[report.Presence] {
			return rn.probe(ctx, name, target)
		}))
	}

	link := strings.TrimSpace(rn.p.ExternalURL)
	if link == "" {
		f.ExternalLink = fetch.Skipped[report.LinkAnalysis](fetch.ReasonNoLink)
		f.Scrape = fetch.Skipped[report.Scrape](fetch.ReasonNoLink)
		f.Domain = fetch.Skipped[report.DomainIntel](fetch.ReasonNoLink)
	} else {
		f.Scrape = fetch.Skipped[report.Scrape](fetch.ReasonNoData)
		jobs = append(jobs,
			collect.Into(&f.ExternalLink, func(ctx context.Context) fetch.Result[report.LinkAnalysis] {
				return rn.externalLink(ctx, link, &f.Scrape)
			}),
			collect.Into(&f.Domain, func(ctx context.Context) fetch.Result[report.DomainIntel] {
				return rn.domain(ctx, link)
			}),
		)
	}
	collect.All(ctx, rn.pool, jobs...)

	f.Presence = make(map[string]fetch.Result[report.Presence], len(platforms))
	for i, name := range platforms {
		f.Presence[name] = presence[i]
	}
	return fetch.Success(f)
}

func (rn *run) probe(ctx context.Context, name, target string) fetch.Result[report.Presence] {
	if rn.web == nil {
		return fetch.Skipped[report.Presence](fetch.ReasonUnavailable)
	}
	r := collect.Call(ctx, rn.pool, webSource(target), "probe:"+name, func(ctx context.Context) (int, error) {
		return rn.web.Probe(ctx, target)
	})
	code, ok := r.Get()
	if !ok {
		return warnFailed(ctx, rn.logger, "presence:"+name, fetch.Failed[report.Presence](r.Err(), r.Failure.Attempts))
	}
	return fetch.Success(report.Presence{URL: target, Found: code == http.StatusOK, StatusCode: code})
}

// externalLink fetches the profile's link and, when it answered 200, stores the
// scraped page in scrape.
func (rn *run) externalLink(ctx context.Context, link string, scrape *fetch.Result[report.Scrape]) fetch.Result[report.LinkAnalysis] {
	if rn.web == nil {
		*scrape = fetch.Skipped[report.Scrape](fetch.ReasonUnavailable)
		return fetch.Skipped[report.LinkAnalysis](fetch.ReasonUnavailable)
	}
	link = withScheme(link)

	res := collect.Call(ctx, rn.pool, webSource(link), "link:"+link, func(ctx context.Context) (*profile.Page, error) {
		return rn.web.Fetch(ctx, link)
	})
	page, ok := res.Get()
	if !ok {
		warnFailed(ctx, rn.logger, "external_link", res)
		return fetch.Failed[report.LinkAnalysis](res.Err(), res.Failure.Attempts)
	}

	la := report.LinkAnalysis{
		Headers:       page.Headers,
		URL:           link,
		FinalURL:      page.URL,
		Domain:        domainOf(page.URL),
		RefreshTarget: htmlutil.RefreshTarget(page.Body),
		RedirectChain: page.RedirectChain,
		Technologies:  htmlutil.Technologies(page.Body),
		StatusCode:    page.StatusCode,
	}
	if la.RedirectChain == nil {
		la.RedirectChain = []string{}
	}
	if la.RefreshTarget != "" {
		la.RefreshTarget = htmlutil.ResolveRelativeURL(page.URL, la.RefreshTarget)
	}

	if page.StatusCode != http.StatusOK {
		*scrape = fetch.Skipped[report.Scrape](fetch.ReasonStatus)
		return fetch.Success(la)
	}
	doc, err := htmlutil.Scrape(page.Body, rn.cfg.Samples.TextRunes, rn.cfg.Samples.Links)
	if err != nil {
		*scrape = fetch.Failed[report.Scrape](fmt.Errorf("scrape %s: %w: %w", page.URL, profile.ErrParse, err), 0)
		return fetch.Success(la)
	}
	*scrape = fetch.Success(report.Scrape{Text: doc.Text, Links: doc.Links, SocialLinks: doc.SocialLinks})
	return fetch.Success(la)
}

// domain gathers WHOIS, DNS and archive data for the registrable host of link.
func (rn *run) domain(ctx context.Context, link string) fetch.Result[report.DomainIntel] {
	d := domainOf(withScheme(link))
	if d == "" {
		return fetch.Failed[report.DomainIntel](fmt.Errorf("no host in %q: %w", link, profile.ErrParse), 0)
	}
	di := report.DomainIntel{Domain: d}

	types := rn.cfg.DNSTypes
	dns := make([]fetch.Result[[]string], len(types))
	jobs := []collect.Job{
		collect.Into(&di.Whois, func(ctx context.Context) fetch.Result[profile.WhoisRecord] {
			if rn.whois == nil {
				return fetch.Skipped[profile.WhoisRecord](fetch.ReasonUnavailable)
			}
			return warnFailed(ctx, rn.logger, "whois", deref(collect.Call(ctx, rn.pool, sourceWhois, "whois:"+d,
				func(ctx context.Context) (*profile.WhoisRecord, error) { return rn.whois.Lookup(ctx, d) })))
		}),
		collect.Into(&di.Archive, func(ctx context.Context) fetch.Result[profile.Snapshot] {
			if rn.archive == nil {
				return fetch.Skipped[profile.Snapshot](fetch.ReasonUnavailable)
			}
			return warnFailed(ctx, rn.logger, "archive", deref(collect.Call(ctx, rn.pool, sourceArchive, "archive:"+d,
				func(ctx context.Context) (*profile.Snapshot, error) { return rn.archive.Snapshot(ctx, d) })))
		}),
	}
	for i, t := range types {
		jobs = append(jobs, collect.Into(&dns[i], func(ctx context.Context) fetch.Result[[]string] {
			if rn.resolver == nil {
				return fetch.Skipped[[]string](fetch.ReasonUnavailable)
			}
			return collect.Call(ctx, rn.pool, sourceDNS, "dns:"+d+"/"+t, func(ctx context.Context) ([]string, error) {
				return rn.resolver.Resolve(ctx, d, t)
			})
		}))
	}
	collect.All(ctx, rn.pool, jobs...)

	di.DNS = make(map[string]fetch.Result[[]string], len(types))
	for i, t := range types {
		di.DNS[t] = dns[i]
	}
	return fetch.Success(di)
}

// deref turns a pointer result into a value result; a nil success becomes no_data.
func deref[T any](r fetch.Result[*T]) fetch.Result[T] {
	switch {
	case r.Status == fetch.StatusSkipped:
		return fetch.Skipped[T](r.Reason)
	case r.Failure != nil:
		return fetch.Failed[T](r.Err(), r.Failure.Attempts)
	case r.Value == nil:
		return fetch.Skipped[T](fetch.ReasonNoData)
	default:
		return fetch.Success(*r.Value)
	}
}

func withScheme(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return "https://" + link
}

// domainOf returns the lowercased host of rawURL without port or a leading "www.".
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// webSource paces requests per host so that probing one site never delays another.
func webSource(rawURL string) string {
	return "web:" + domainOf(rawURL)
}
