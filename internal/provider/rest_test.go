package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
)

type countingLimiter struct {
	calls atomic.Int32
}

func (l *countingLimiter) Wait(context.Context) error {
	l.calls.Add(1)
	return nil
}

func TestRestClientGetJSONCachesByKey(t *testing.T) {
	var calls atomic.Int32
	limiter := &countingLimiter{}
	rc := NewRestClient(
		WithHTTPClient(countingClient(200, `{"ok": true}`, &calls)),
		WithRateLimiter(limiter),
	)
	ctx := context.Background()
	opts := RequestOptions{RequireHTTPS: true}

	first := rc.GetJSON(ctx, "https://example.com/a", opts)
	second := rc.GetJSON(ctx, "https://example.com/a", opts)

	want := map[string]any{"ok": true}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("first GetJSON mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Fatalf("second GetJSON mismatch (-want +got):\n%s", diff)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("network calls = %d, want 1", got)
	}
	if got := limiter.calls.Load(); got != 1 {
		t.Fatalf("limiter calls = %d, want 1 (cache hit must skip the limiter)", got)
	}
}

func TestRestClientExplicitCacheKey(t *testing.T) {
	var calls atomic.Int32
	rc := NewRestClient(WithHTTPClient(countingClient(200, `[1, 2]`, &calls)))
	ctx := context.Background()

	rc.GetJSON(ctx, "https://example.com/a?token=1", RequestOptions{CacheKey: "k"})
	got := rc.GetJSON(ctx, "https://example.com/a?token=2", RequestOptions{CacheKey: "k"})

	if calls.Load() != 1 {
		t.Fatalf("network calls = %d, want 1", calls.Load())
	}
	if diff := cmp.Diff([]any{1.0, 2.0}, got); diff != "" {
		t.Fatalf("GetJSON mismatch (-want +got):\n%s", diff)
	}
}

func TestRestClientLongAndShortCachesAreSeparate(t *testing.T) {
	var calls atomic.Int32
	rc := NewRestClient(WithHTTPClient(countingClient(200, `{}`, &calls)))
	ctx := context.Background()

	rc.GetJSON(ctx, "https://example.com/a", RequestOptions{})
	rc.GetJSON(ctx, "https://example.com/a", RequestOptions{UseLongCache: true})
	rc.GetJSON(ctx, "https://example.com/a", RequestOptions{UseLongCache: true})

	if got := calls.Load(); got != 2 {
		t.Fatalf("network calls = %d, want 2", got)
	}
}

func TestRestClientShortCacheExpires(t *testing.T) {
	var calls atomic.Int32
	rc := NewRestClient(
		WithHTTPClient(countingClient(200, `{}`, &calls)),
		WithShortCache(8, 20*time.Millisecond),
	)
	ctx := context.Background()

	rc.GetJSON(ctx, "https://example.com/a", RequestOptions{})
	time.Sleep(60 * time.Millisecond)
	rc.GetJSON(ctx, "https://example.com/a", RequestOptions{})

	if got := calls.Load(); got != 2 {
		t.Fatalf("network calls = %d, want 2 after expiry", got)
	}
}

func TestRestClientSchemeGate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		opts    RequestOptions
		allowed bool
	}{
		{"https required and used", "https://api.example.com/x", RequestOptions{RequireHTTPS: true}, true},
		{"https required but http", "http://api.example.com/x", RequestOptions{RequireHTTPS: true, AllowedHTTPHosts: []string{"api.example.com"}}, false},
		{"http on allowed host", "http://api.example.com/x", RequestOptions{AllowedHTTPHosts: []string{"api.example.com"}}, true},
		{"http on other host", "http://evil.example.com/x", RequestOptions{AllowedHTTPHosts: []string{"api.example.com"}}, false},
		{"http without allow list", "http://api.example.com/x", RequestOptions{}, true},
		{"http with empty allow list", "http://api.example.com/x", RequestOptions{AllowedHTTPHosts: []string{}}, false},
		{"https without requirement", "https://api.example.com/x", RequestOptions{}, true},
		{"ftp", "ftp://api.example.com/x", RequestOptions{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			rc := NewRestClient(WithHTTPClient(countingClient(200, `{"a": 1}`, &calls)))

			got := rc.GetJSON(context.Background(), tt.url, tt.opts)
			if tt.allowed {
				if calls.Load() != 1 {
					t.Fatalf("network calls = %d, want 1", calls.Load())
				}
				return
			}
			if calls.Load() != 0 {
				t.Fatalf("blocked url made %d network calls", calls.Load())
			}
			if diff := cmp.Diff(map[string]any{}, got); diff != "" {
				t.Fatalf("blocked GetJSON mismatch (-want +got):\n%s", diff)
			}
			if b := rc.GetBytes(context.Background(), tt.url, tt.opts); b != nil {
				t.Fatalf("blocked GetBytes = %q, want nil", b)
			}
			if _, err := rc.FetchJSON(context.Background(), tt.url, tt.opts); !errors.Is(err, ErrBlockedURL) {
				t.Fatalf("FetchJSON error = %v, want ErrBlockedURL", err)
			}
		})
	}
}

func TestRestClientFailuresDegradeToEmpty(t *testing.T) {
	tests := []struct {
		name string
		fn   roundTripFunc
	}{
		{"http error status", func(*http.Request) (*http.Response, error) {
			return jsonResponse(500, `boom`), nil
		}},
		{"transport error", func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}},
		{"invalid json", func(*http.Request) (*http.Response, error) {
			return jsonResponse(200, `{not json`), nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRestClient(WithHTTPClient(newTestClient(tt.fn)))
			got := rc.GetJSON(context.Background(), "https://example.com/x", RequestOptions{})
			if diff := cmp.Diff(map[string]any{}, got); diff != "" {
				t.Fatalf("GetJSON mismatch (-want +got):\n%s", diff)
			}
			if _, err := rc.FetchJSON(context.Background(), "https://example.com/y", RequestOptions{}); err == nil {
				t.Fatal("FetchJSON error = nil, want failure")
			}
		})
	}
}

func TestRestClientGetBytesFailure(t *testing.T) {
	rc := NewRestClient(WithHTTPClient(newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(404, `missing`), nil
	})))
	if got := rc.GetBytes(context.Background(), "https://example.com/x", RequestOptions{}); got != nil {
		t.Fatalf("GetBytes = %q, want nil", got)
	}
}

func TestRestClientSendsHeadersAndDecodesGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(`{"status": "ok"}`)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	var gotHeaders http.Header
	rc := NewRestClient(
		WithUserAgent("mediatag v1"),
		WithHTTPClient(newTestClient(func(req *http.Request) (*http.Response, error) {
			gotHeaders = req.Header.Clone()
			resp := &http.Response{
				StatusCode: 200,
				Header:     make(http.Header),
				Body:       io.NopCloser(bytes.NewReader(buf.Bytes())),
			}
			resp.Header.Set("Content-Encoding", "gzip")
			return resp, nil
		})),
	)

	got := rc.GetJSON(context.Background(), "https://example.com/x", RequestOptions{
		Headers: map[string]string{"Accept-Encoding": "gzip", "Accept-Language": "en"},
	})

	if diff := cmp.Diff(map[string]any{"status": "ok"}, got); diff != "" {
		t.Fatalf("GetJSON mismatch (-want +got):\n%s", diff)
	}
	if gotHeaders.Get("User-Agent") != "mediatag v1" {
		t.Errorf("User-Agent = %q", gotHeaders.Get("User-Agent"))
	}
	if gotHeaders.Get("Accept-Language") != "en" {
		t.Errorf("Accept-Language = %q", gotHeaders.Get("Accept-Language"))
	}
}

func TestRestClientPostJSON(t *testing.T) {
	var body string
	var method string
	rc := NewRestClient(WithHTTPClient(newTestClient(func(req *http.Request) (*http.Response, error) {
		method = req.Method
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		if ct := req.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		return jsonResponse(200, `{"token": "abc"}`), nil
	})))

	got, err := rc.PostJSON(context.Background(), "https://example.com/login", map[string]string{"apikey": "k"}, RequestOptions{RequireHTTPS: true})
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if method != http.MethodPost {
		t.Errorf("method = %s, want POST", method)
	}
	if !strings.Contains(body, `"apikey":"k"`) {
		t.Errorf("body = %s", body)
	}
	if diff := cmp.Diff(map[string]any{"token": "abc"}, got); diff != "" {
		t.Fatalf("PostJSON mismatch (-want +got):\n%s", diff)
	}
}

func TestRestClientBytesAreCached(t *testing.T) {
	var calls atomic.Int32
	rc := NewRestClient(WithHTTPClient(countingClient(200, `raw`, &calls)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if got := rc.GetBytes(ctx, "https://example.com/raw", RequestOptions{UseLongCache: true}); string(got) != "raw" {
			t.Fatalf("GetBytes = %q, want raw", got)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("network calls = %d, want 1", calls.Load())
	}
}

func TestRestClientSkipCacheForgetAndPurge(t *testing.T) {
	var calls atomic.Int32
	rc := NewRestClient(WithHTTPClient(countingClient(200, `{"n": 1}`, &calls)))
	ctx := context.Background()
	const target = "https://example.com/a"

	rc.GetJSON(ctx, target, RequestOptions{SkipCache: true})
	rc.GetJSON(ctx, target, RequestOptions{SkipCache: true})
	if got := calls.Load(); got != 2 {
		t.Fatalf("SkipCache network calls = %d, want 2", got)
	}

	rc.GetJSON(ctx, target, RequestOptions{})
	rc.GetJSON(ctx, target, RequestOptions{})
	if got := calls.Load(); got != 3 {
		t.Fatalf("network calls after caching = %d, want 3", got)
	}

	// forgetting the long cache entry leaves the short one alone
	rc.Forget(target, RequestOptions{UseLongCache: true})
	rc.GetJSON(ctx, target, RequestOptions{})
	if got := calls.Load(); got != 3 {
		t.Fatalf("network calls after Forget(long) = %d, want 3", got)
	}

	rc.Forget(target, RequestOptions{})
	rc.GetJSON(ctx, target, RequestOptions{})
	if got := calls.Load(); got != 4 {
		t.Fatalf("network calls after Forget = %d, want 4", got)
	}

	rc.Purge()
	rc.GetJSON(ctx, target, RequestOptions{})
	if got := calls.Load(); got != 5 {
		t.Fatalf("network calls after Purge = %d, want 5", got)
	}
}

func TestRestClientPlainHTTPWithoutAllowList(t *testing.T) {
	var calls atomic.Int32
	rc := NewRestClient(WithHTTPClient(countingClient(200, `{"a": 1}`, &calls)))

	got := rc.GetJSON(context.Background(), "http://api.example.com/x", RequestOptions{})

	if calls.Load() != 1 {
		t.Fatalf("network calls = %d, want 1", calls.Load())
	}
	if diff := cmp.Diff(map[string]any{"a": float64(1)}, got); diff != "" {
		t.Fatalf("GetJSON mismatch (-want +got):\n%s", diff)
	}
}

func TestRestClientBuildsOnlyConfiguredCaches(t *testing.T) {
	rc := NewRestClient(WithShortCache(8, time.Minute), WithLongCache(16, time.Hour))
	if got := rc.short.TTL(); got != time.Minute {
		t.Errorf("short TTL = %v, want %v", got, time.Minute)
	}
	if got := rc.long.TTL(); got != time.Hour {
		t.Errorf("long TTL = %v, want %v", got, time.Hour)
	}

	defaults := NewRestClient()
	if defaults.short.TTL() != defaultShortTTL || defaults.long.TTL() != defaultLongTTL {
		t.Errorf("default TTLs = %v/%v, want %v/%v", defaults.short.TTL(), defaults.long.TTL(), defaultShortTTL, defaultLongTTL)
	}

	// every cache runs one cleanup goroutine for the life of the process
	const clients = 50
	before := runtime.NumGoroutine()
	for i := 0; i < clients; i++ {
		NewRestClient(WithShortCache(8, time.Minute), WithLongCache(8, time.Minute))
	}
	if delta := runtime.NumGoroutine() - before; delta > 2*clients+10 {
		t.Errorf("building %d clients started %d goroutines, want at most %d", clients, delta, 2*clients)
	}
}

func TestRestClientCallersCannotMutateCache(t *testing.T) {
	var calls atomic.Int32
	rc := NewRestClient(WithHTTPClient(countingClient(200, `{"results": [{"id": "a"}]}`, &calls)))
	ctx := context.Background()

	first := rc.GetJSON(ctx, "https://example.com/a", RequestOptions{}).(map[string]any)
	first["results"].([]any)[0].(map[string]any)["id"] = "changed"
	first["extra"] = true

	second := rc.GetJSON(ctx, "https://example.com/a", RequestOptions{})
	want := map[string]any{"results": []any{map[string]any{"id": "a"}}}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Fatalf("cached value changed by caller (-want +got):\n%s", diff)
	}

	raw := rc.GetBytes(ctx, "https://example.com/b", RequestOptions{})
	raw[0] = 'X'
	if again := rc.GetBytes(ctx, "https://example.com/b", RequestOptions{}); again[0] != '{' {
		t.Fatalf("cached bytes changed by caller: %q", again)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("network calls = %d, want 2", got)
	}
}
