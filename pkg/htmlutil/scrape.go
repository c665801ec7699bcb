// Package htmlutil extracts visible text, links and fingerprints from fetched pages.
package htmlutil

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// SocialDomains are the hosts whose links are reported as social links.
var SocialDomains = []string{"twitter.com", "linkedin.com", "facebook.com", "tiktok.com"}

// Document is the result of one scrape.
type Document struct {
	Title       string
	Text        string
	Links       []string
	SocialLinks []string
}

// Scrape tokenizes body once and collects the page title, visible text (at most
// textLimit runes), anchor hrefs in document order (at most linkLimit) and every
// href pointing at one of SocialDomains.
func Scrape(body []byte, textLimit, linkLimit int) (*Document, error) {
	doc := &Document{Links: []string{}, SocialLinks: []string{}}
	var text strings.Builder
	runes := 0
	skip := 0 // depth inside <script>/<style>
	inTitle := false

	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				doc.Text = strings.TrimSpace(text.String())
				return doc, nil
			}
			return nil, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			switch tag := string(tn); {
			case tag == "script" || tag == "style" || tag == "noscript":
				skip++
			case tag == "title":
				inTitle = true
			case tag == "a" && hasAttr:
				href := strings.TrimSpace(attr(z, "href"))
				if href == "" {
					continue
				}
				if len(doc.Links) < linkLimit {
					doc.Links = append(doc.Links, href)
				}
				if isSocial(href) {
					doc.SocialLinks = append(doc.SocialLinks, href)
				}
			}

		case html.EndTagToken:
			tn, _ := z.TagName()
			switch string(tn) {
			case "script", "style", "noscript":
				if skip > 0 {
					skip--
				}
			case "title":
				inTitle = false
			}

		case html.TextToken:
			s := strings.Join(strings.Fields(string(z.Text())), " ")
			if s == "" {
				continue
			}
			if inTitle {
				doc.Title = s
				continue
			}
			if skip > 0 || runes >= textLimit {
				continue
			}
			if runes > 0 {
				text.WriteByte(' ')
				runes++
			}
			for _, r := range s {
				if runes >= textLimit {
					break
				}
				text.WriteRune(r)
				runes++
			}
		}
	}
}

// Technologies fingerprints well-known site builders and trackers by marker substrings.
// The result follows a fixed order and is empty when nothing matches.
func Technologies(body []byte) []string {
	lower := bytes.ToLower(body)
	out := []string{}
	for _, t := range techMarkers {
		if bytes.Contains(lower, []byte(t.marker)) {
			out = append(out, t.name)
		}
	}
	return out
}

var techMarkers = []struct {
	name   string
	marker string
}{
	{"wordpress", "wp-content"},
	{"shopify", "shopify"},
	{"wix", "wix.com"},
	{"squarespace", "squarespace"},
	{"google_analytics", "google-analytics"},
	{"facebook_pixel", "facebook.net"},
}

func isSocial(href string) bool {
	for _, d := range SocialDomains {
		if strings.Contains(href, d) {
			return true
		}
	}
	return false
}

func attr(z *html.Tokenizer, target string) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == target {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}
