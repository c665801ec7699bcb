package auth

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser cookie stores
	"github.com/browserutils/kooky/browser/chrome"
	"github.com/browserutils/kooky/browser/firefox"
)

// BrowserSource reads the Instagram session from local browser cookie stores.
type BrowserSource struct {
	logger *slog.Logger
	home   string
}

// NewBrowserSource creates a new browser cookie source.
func NewBrowserSource(logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserSource{logger: logger, home: os.Getenv("HOME")}
}

// Cookies returns the essential Instagram cookies found in browser stores.
// An unreadable store is logged and skipped.
func (s *BrowserSource) Cookies(ctx context.Context) (map[string]string, error) {
	s.logger.DebugContext(ctx, "reading browser cookies", "domain", Domain)

	// Firefox forks and Chrome Canary are not auto-detected by kooky.
	if cookies := s.tryFirefoxProfiles(ctx); len(cookies) > 0 {
		return cookies, nil
	}
	if cookies := s.tryChromeCanary(ctx); len(cookies) > 0 {
		return cookies, nil
	}

	kookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(Domain))
	if err != nil {
		s.logger.DebugContext(ctx, "failed to read browser cookies", "error", err)
		if len(kookies) == 0 {
			return nil, nil //nolint:nilnil // failed browser read is not a fatal error
		}
	}
	if len(kookies) == 0 {
		return nil, nil //nolint:nilnil // no browser cookies is not an error
	}
	return s.filterEssentialCookies(ctx, kookies), nil
}

// firefoxProfileGlobs lists cookie databases of Firefox and Firefox-based browsers.
func (s *BrowserSource) firefoxProfileGlobs() []string {
	return []string{
		filepath.Join(s.home, "Library", "Application Support", "zen", "Profiles", "*", "cookies.sqlite"),
		filepath.Join(s.home, "Library", "Application Support", "Firefox", "Profiles", "*", "cookies.sqlite"),
		filepath.Join(s.home, ".zen", "*", "cookies.sqlite"),
		filepath.Join(s.home, ".mozilla", "firefox", "*", "cookies.sqlite"),
	}
}

func (s *BrowserSource) tryFirefoxProfiles(ctx context.Context) map[string]string {
	if s.home == "" {
		return nil
	}
	for _, pattern := range s.firefoxProfileGlobs() {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, f := range matches {
			kookies, err := firefox.ReadCookies(ctx, f, kooky.Valid, kooky.DomainHasSuffix(Domain))
			if err != nil {
				s.logger.DebugContext(ctx, "failed to read firefox cookies", "profile", filepath.Base(filepath.Dir(f)), "error", err)
				continue
			}
			if len(kookies) > 0 {
				s.logger.DebugContext(ctx, "found firefox cookies", "profile", filepath.Base(filepath.Dir(f)), "count", len(kookies))
				return s.filterEssentialCookies(ctx, kookies)
			}
		}
	}
	return nil
}

func (s *BrowserSource) tryChromeCanary(ctx context.Context) map[string]string {
	if s.home == "" {
		return nil
	}
	canaryDir := filepath.Join(s.home, "Library", "Application Support", "Google", "Chrome Canary")
	for _, profile := range []string{"Default", "Profile 1", "Profile 2", "Profile 3"} {
		cookiesFile := filepath.Join(canaryDir, profile, "Cookies")
		if _, err := os.Stat(cookiesFile); err != nil {
			continue
		}

		kookies, err := chrome.ReadCookies(ctx, cookiesFile, kooky.Valid, kooky.DomainHasSuffix(Domain))
		if err != nil {
			if strings.Contains(err.Error(), "encryption") || strings.Contains(err.Error(), "decrypt") {
				s.logger.WarnContext(ctx, "Chrome Canary cookies exist but cannot be decrypted",
					"profile", profile,
					"hint", "try Firefox or set INSTAGRAM_SESSIONID")
			} else {
				s.logger.DebugContext(ctx, "failed to read Chrome Canary cookies", "profile", profile, "error", err)
			}
			continue
		}
		if len(kookies) > 0 {
			return s.filterEssentialCookies(ctx, kookies)
		}
	}
	return nil
}

func (s *BrowserSource) filterEssentialCookies(ctx context.Context, kookies []*kooky.Cookie) map[string]string {
	cookies := make(map[string]string)
	for _, c := range kookies {
		if essential(c.Name) && c.Value != "" {
			cookies[c.Name] = c.Value
		}
	}

	var found, missing []string
	for _, name := range EssentialCookies {
		if _, ok := cookies[name]; ok {
			found = append(found, name)
		} else {
			missing = append(missing, name)
		}
	}
	if len(found) > 0 {
		s.logger.InfoContext(ctx, "browser cookies found", "keys", found)
	}
	if len(missing) > 0 {
		s.logger.DebugContext(ctx, "browser cookies missing", "keys", missing)
	}
	return cookies
}
