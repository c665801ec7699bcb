package auth

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewCookieJar(t *testing.T) {
	jar, err := NewCookieJar(Domain, map[string]string{"sessionid": "abc123", "csrftoken": ""})
	if err != nil {
		t.Fatalf("NewCookieJar failed: %v", err)
	}

	u, err := url.Parse("https://i.instagram.com/api/v1/")
	if err != nil {
		t.Fatal(err)
	}
	got := jar.Cookies(u)
	if len(got) != 1 || got[0].Name != "sessionid" || got[0].Value != "abc123" {
		t.Errorf("jar cookies = %v, want only sessionid=abc123", got)
	}
}

func TestEnvSource(t *testing.T) {
	t.Setenv("INSTAGRAM_SESSIONID", "test-session")
	t.Setenv("INSTAGRAM_CSRFTOKEN", "test-csrf")
	t.Setenv("INSTAGRAM_DS_USER_ID", "")

	cookies, err := EnvSource{}.Cookies(context.Background())
	if err != nil {
		t.Fatalf("Cookies failed: %v", err)
	}
	want := map[string]string{"sessionid": "test-session", "csrftoken": "test-csrf"}
	if diff := cmp.Diff(want, cookies); diff != "" {
		t.Errorf("Cookies() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvSourceNoCookies(t *testing.T) {
	for _, v := range EnvVars() {
		t.Setenv(v, "")
	}
	cookies, err := EnvSource{}.Cookies(context.Background())
	if err != nil {
		t.Fatalf("Cookies failed: %v", err)
	}
	if cookies != nil {
		t.Error("cookies should be nil when env vars not set")
	}
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(map[string]string{"sessionid": "abc123"})
	cookies, err := src.Cookies(context.Background())
	if err != nil {
		t.Fatalf("Cookies failed: %v", err)
	}

	cookies["sessionid"] = "modified"
	again, err := src.Cookies(context.Background())
	if err != nil {
		t.Fatalf("Cookies failed: %v", err)
	}
	if again["sessionid"] != "abc123" {
		t.Error("StaticSource should return copies")
	}

	empty, err := NewStaticSource(nil).Cookies(context.Background())
	if err != nil || empty != nil {
		t.Errorf("empty source = %v, %v; want nil, nil", empty, err)
	}
}

func TestChainSources(t *testing.T) {
	cookies, err := ChainSources(context.Background(),
		NewStaticSource(nil),
		NewStaticSource(map[string]string{"sessionid": "from-src2"}),
		NewStaticSource(map[string]string{"sessionid": "from-src3"}),
	)
	if err != nil {
		t.Fatalf("ChainSources failed: %v", err)
	}
	if cookies["sessionid"] != "from-src2" {
		t.Errorf("sessionid = %q, want from-src2", cookies["sessionid"])
	}

	none, err := ChainSources(context.Background(), NewStaticSource(nil), NewStaticSource(nil))
	if err != nil || none != nil {
		t.Errorf("all empty = %v, %v; want nil, nil", none, err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{
			name:    "json",
			content: `{"sessionid": "s1", "csrftoken": "c1", "mid": "ignored"}`,
			want:    map[string]string{"sessionid": "s1", "csrftoken": "c1"},
		},
		{
			name: "netscape",
			content: "# Netscape HTTP Cookie File\n" +
				".instagram.com\tTRUE\t/\tTRUE\t1999999999\tcsrftoken\tc2\n" +
				"#HttpOnly_.instagram.com\tTRUE\t/\tTRUE\t1999999999\tsessionid\ts2\n" +
				".example.com\tTRUE\t/\tFALSE\t1999999999\tsessionid\tother\n",
			want: map[string]string{"sessionid": "s2", "csrftoken": "c2"},
		},
		{
			name:    "no session",
			content: "# Netscape HTTP Cookie File\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			got, err := NewFileSource(path).Cookies(context.Background())
			if err != nil {
				t.Fatalf("Cookies failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Cookies() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := NewFileSource(filepath.Join(dir, "missing")).Cookies(context.Background()); err == nil {
		t.Error("missing file should be an error")
	}
}

func TestFromRef(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(`{"sessionid":"from-file"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		ref  string
		want string
	}{
		{path, "from-file"},
		{"rawsessionvalue", "rawsessionvalue"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := FromRef(tt.ref).Cookies(context.Background())
		if err != nil {
			t.Fatalf("FromRef(%q): %v", tt.ref, err)
		}
		if got["sessionid"] != tt.want {
			t.Errorf("FromRef(%q) sessionid = %q, want %q", tt.ref, got["sessionid"], tt.want)
		}
	}
}

func TestBrowserSourceNoHome(t *testing.T) {
	s := NewBrowserSource(nil)
	s.home = ""
	if got := s.tryFirefoxProfiles(context.Background()); got != nil {
		t.Errorf("tryFirefoxProfiles without HOME = %v, want nil", got)
	}
	if !slices.Contains(s.firefoxProfileGlobs(), filepath.Join(".mozilla", "firefox", "*", "cookies.sqlite")) {
		t.Error("linux firefox profiles not searched")
	}
}
