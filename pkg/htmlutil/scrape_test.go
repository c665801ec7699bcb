package htmlutil

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const page = `<!DOCTYPE html>
<html><head><title> Jane &amp; Co </title>
<style>body { color: red }</style>
<script src="https://www.google-analytics.com/analytics.js"></script>
<script>var x = "not visible";</script>
</head>
<body>
  <h1>Hello   there</h1>
  <p>Find me on <a href="https://twitter.com/jane">Twitter</a> or
  <a href="https://www.linkedin.com/in/jane">LinkedIn</a>.</p>
  <a href="/about">About</a>
  <a href="">empty</a>
  <img src="/wp-content/uploads/me.png">
</body></html>`

func TestScrape(t *testing.T) {
	doc, err := Scrape([]byte(page), 1000, 50)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	want := &Document{
		Title:       "Jane & Co",
		Text:        "Hello there Find me on Twitter or LinkedIn . About empty",
		Links:       []string{"https://twitter.com/jane", "https://www.linkedin.com/in/jane", "/about"},
		SocialLinks: []string{"https://twitter.com/jane", "https://www.linkedin.com/in/jane"},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("Scrape() mismatch (-want +got):\n%s", diff)
	}
}

func TestScrapeLimits(t *testing.T) {
	var b strings.Builder
	b.WriteString("<p>")
	b.WriteString(strings.Repeat("ü", 30))
	b.WriteString("</p>")
	for range 10 {
		b.WriteString(`<a href="https://facebook.com/x">x</a>`)
	}

	doc, err := Scrape([]byte(b.String()), 20, 3)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if got := []rune(doc.Text); len(got) != 20 {
		t.Errorf("text has %d runes, want 20", len(got))
	}
	if len(doc.Links) != 3 {
		t.Errorf("len(Links) = %d, want 3", len(doc.Links))
	}
	if len(doc.SocialLinks) != 10 {
		t.Errorf("len(SocialLinks) = %d, want 10", len(doc.SocialLinks))
	}
}

func TestTechnologies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{name: "none", body: "<html>plain</html>", want: []string{}},
		{name: "page fixture", body: page, want: []string{"wordpress", "google_analytics"}},
		{
			name: "case insensitive and ordered",
			body: `<script src="https://connect.FACEBOOK.NET/en_US/fbevents.js"></script><link href="//static.Squarespace.com/x.css">`,
			want: []string{"squarespace", "facebook_pixel"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Technologies([]byte(tt.body))); diff != "" {
				t.Errorf("Technologies() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
