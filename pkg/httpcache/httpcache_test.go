package httpcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

func TestGetDedupes(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("X-Test header = %q, want yes", r.Header.Get("X-Test"))
		}
		w.Write([]byte("payload")) //nolint:errcheck // test server
	}))
	defer srv.Close()

	s := New()
	hdr := http.Header{"X-Test": []string{"yes"}}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, err := s.Get(context.Background(), srv.URL+"/a", hdr)
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			if string(body) != "payload" {
				t.Errorf("body = %q, want payload", body)
			}
		}()
	}
	wg.Wait()
	if _, err := s.Get(context.Background(), srv.URL+"/a", hdr); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
	if st := s.Stats(); st.Misses != 1 || st.Hits < 1 {
		t.Errorf("Stats() = %+v, want 1 miss and at least 1 hit", st)
	}
}

func TestGetDoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck // test server
	}))
	defer srv.Close()

	s := New()
	_, err := s.Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, profile.ErrRateLimited) {
		t.Fatalf("first Get err = %v, want ErrRateLimited", err)
	}
	body, err := s.Get(context.Background(), srv.URL, nil)
	if err != nil || string(body) != "ok" {
		t.Fatalf("second Get = %q, %v; want ok, nil", body, err)
	}
}

func TestGetValidatedDoesNotCacheRejectedBodies(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.Write([]byte("wait")) //nolint:errcheck // test server
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck // test server
	}))
	defer srv.Close()

	errWait := fmt.Errorf("soft throttle: %w", profile.ErrRateLimited)
	validate := func(body []byte) error {
		if string(body) == "wait" {
			return errWait
		}
		return nil
	}

	s := New()
	ctx := context.Background()
	if _, err := s.GetValidated(ctx, srv.URL, nil, validate); !errors.Is(err, profile.ErrRateLimited) {
		t.Fatalf("first GetValidated err = %v, want ErrRateLimited", err)
	}
	for range 2 {
		body, err := s.GetValidated(ctx, srv.URL, nil, validate)
		if err != nil || string(body) != "ok" {
			t.Fatalf("GetValidated = %q, %v; want ok, nil", body, err)
		}
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hits = %d, want 2 (rejected body refetched, accepted body shared)", n)
	}
}

func TestGetKeepsErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":"fail"}`)) //nolint:errcheck // test server
	}))
	defer srv.Close()

	_, err := New().Get(context.Background(), srv.URL, nil)
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if he.StatusCode != http.StatusBadRequest || string(he.Body) != `{"status":"fail"}` {
		t.Errorf("HTTPError = %d %q", he.StatusCode, he.Body)
	}
}

func TestHTTPErrorUnwrap(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusTooManyRequests, profile.ErrRateLimited},
		{http.StatusNotFound, profile.ErrNotFound},
		{http.StatusGone, profile.ErrNotFound},
		{http.StatusForbidden, profile.ErrAuthRequired},
		{http.StatusBadGateway, profile.ErrTransient},
		{http.StatusTeapot, nil},
	}
	for _, tt := range tests {
		err := &HTTPError{URL: "u", StatusCode: tt.code}
		if got := err.Unwrap(); !errors.Is(got, tt.want) || (tt.want == nil && got != nil) {
			t.Errorf("HTTPError{%d}.Unwrap() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Server", "test")
		w.Write([]byte("<html>done</html>")) //nolint:errcheck // test server
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := New().Fetch(context.Background(), srv.URL+"/start")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", page.StatusCode)
	}
	if page.URL != srv.URL+"/end" {
		t.Errorf("URL = %q, want %q", page.URL, srv.URL+"/end")
	}
	if diff := cmp.Diff([]string{srv.URL + "/start", srv.URL + "/middle"}, page.RedirectChain); diff != "" {
		t.Errorf("RedirectChain mismatch (-want +got):\n%s", diff)
	}
	if page.Headers["Server"] != "test" {
		t.Errorf("Headers[Server] = %q, want test", page.Headers["Server"])
	}
	if string(page.Body) != "<html>done</html>" {
		t.Errorf("Body = %q", page.Body)
	}
}

func TestFetchStatusHandling(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantErr  error
		wantCode int
	}{
		{name: "not found is data", status: http.StatusNotFound, wantCode: http.StatusNotFound},
		{name: "throttled", status: http.StatusTooManyRequests, wantErr: profile.ErrRateLimited},
		{name: "server error", status: http.StatusServiceUnavailable, wantErr: profile.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			page, err := New().Fetch(context.Background(), srv.URL)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if page.StatusCode != tt.wantCode {
				t.Errorf("StatusCode = %d, want %d", page.StatusCode, tt.wantCode)
			}
		})
	}
}

func TestFetchCapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(make([]byte, 4096)) //nolint:errcheck // test server
	}))
	defer srv.Close()

	page, err := New(WithMaxBody(100)).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(page.Body) != 100 {
		t.Errorf("len(Body) = %d, want 100", len(page.Body))
	}
}

func TestProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jane", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		http.Redirect(w, r, "/profile/jane", http.StatusFound)
	})
	mux.HandleFunc("/profile/jane", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New()
	code, err := s.Probe(context.Background(), srv.URL+"/jane")
	if err != nil || code != http.StatusOK {
		t.Errorf("Probe(found) = %d, %v; want 200, nil", code, err)
	}
	code, err = s.Probe(context.Background(), srv.URL+"/nobody")
	if err != nil || code != http.StatusNotFound {
		t.Errorf("Probe(missing) = %d, %v; want 404, nil", code, err)
	}
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Fetch(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, profile.ErrTransient) {
		t.Errorf("cancelled fetch classified as transient: %v", err)
	}
}
