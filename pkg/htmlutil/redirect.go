package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var jsRedirects = []*regexp.Regexp{
	regexp.MustCompile(`(?i)window\.location(?:\.href)?\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)(?:^|[^\w.])location(?:\.href)?\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)document\.location(?:\.href)?\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)window\.location\.replace\s*\(\s*["']([^"']+)["']\s*\)`),
	regexp.MustCompile(`(?i)(?:^|[^\w.])location\.replace\s*\(\s*["']([^"']+)["']\s*\)`),
	regexp.MustCompile(`(?i)window\.location\.assign\s*\(\s*["']([^"']+)["']\s*\)`),
}

// RefreshTarget returns the client-side redirect target of a page: a meta refresh URL
// if present, otherwise a JavaScript location assignment. It returns "" when the page
// does not redirect.
func RefreshTarget(body []byte) string {
	if u := metaRefresh(body); u != "" {
		return u
	}
	return jsRedirect(string(body))
}

// metaRefresh handles <meta http-equiv="refresh" content="0; url=https://example.com">
// regardless of attribute order.
func metaRefresh(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			if string(tn) != "meta" || !hasAttr {
				continue
			}
			var equiv, content string
			for {
				key, val, more := z.TagAttr()
				switch strings.ToLower(string(key)) {
				case "http-equiv":
					equiv = string(val)
				case "content":
					content = string(val)
				}
				if !more {
					break
				}
			}
			if !strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
				continue
			}
			if u := refreshURL(content); u != "" {
				return u
			}
		}
	}
}

// refreshURL parses a refresh content value such as "5;URL='https://x'".
func refreshURL(content string) string {
	_, rest, ok := strings.Cut(content, ";")
	if !ok {
		return ""
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 4 || !strings.EqualFold(rest[:3], "url") {
		return ""
	}
	rest = strings.TrimSpace(rest[3:])
	rest, ok = strings.CutPrefix(rest, "=")
	if !ok {
		return ""
	}
	return cleanRedirectURL(rest)
}

func jsRedirect(content string) string {
	for _, re := range jsRedirects {
		if m := re.FindStringSubmatch(content); len(m) > 1 {
			u := cleanRedirectURL(m[1])
			// Self-referential and fragment-only targets do not leave the page.
			if u != "" && !strings.HasPrefix(u, "#") && u != "." && u != "./" {
				return u
			}
		}
	}
	return ""
}

func cleanRedirectURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.Trim(u, `"'`)
	u = strings.TrimSuffix(u, ">")
	return strings.TrimSpace(u)
}

// ResolveRelativeURL resolves a potentially relative URL against a base URL.
func ResolveRelativeURL(baseURL, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}

	// Protocol-relative URLs.
	if strings.HasPrefix(ref, "//") {
		return base.Scheme + ":" + ref
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return base.ResolveReference(refURL).String()
}
