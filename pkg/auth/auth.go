// Package auth loads the Instagram session cookies used for authenticated requests.
package auth

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"slices"
	"strings"
)

// Domain is the cookie domain of the Instagram session.
const Domain = "instagram.com"

// EssentialCookies are the cookies that make up an Instagram session.
var EssentialCookies = []string{"sessionid", "csrftoken", "ds_user_id"}

// NewCookieJar creates an http.CookieJar populated with the given cookies for domain.
func NewCookieJar(domain string, cookies map[string]string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse("https://" + domain)
	if err != nil {
		return nil, err
	}

	var httpCookies []*http.Cookie
	for name, value := range cookies {
		if value != "" {
			httpCookies = append(httpCookies, &http.Cookie{
				Name:   name,
				Value:  value,
				Domain: "." + domain,
				Path:   "/",
			})
		}
	}

	jar.SetCookies(u, httpCookies)
	return jar, nil
}

// Source represents a source of session cookies.
type Source interface {
	// Cookies returns the session cookies, or nil if this source has none.
	Cookies(ctx context.Context) (map[string]string, error)
}

// ChainSources returns cookies from the first source that provides them.
func ChainSources(ctx context.Context, sources ...Source) (map[string]string, error) {
	for _, src := range sources {
		cookies, err := src.Cookies(ctx)
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			return cookies, nil
		}
	}
	return nil, nil //nolint:nilnil // no source had cookies, but this is not an error
}

// FromRef interprets a --session reference: an existing file is read as a cookie
// file, anything else is taken as a raw sessionid value.
func FromRef(ref string) Source {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return NewStaticSource(nil)
	}
	if fi, err := os.Stat(ref); err == nil && !fi.IsDir() {
		return NewFileSource(ref)
	}
	return NewStaticSource(map[string]string{"sessionid": ref})
}

func essential(name string) bool {
	return slices.Contains(EssentialCookies, name)
}
