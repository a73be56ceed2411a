package acoustid

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

func jsonResponse(status int, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

func newClient(fn roundTripFunc) *Client {
	return New("test-key",
		provider.WithHTTPClient(newTestClient(fn)),
		provider.WithRateLimiter(nil),
		provider.WithLogger(log.New(io.Discard)),
	)
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "AcoustID", New("k").Identifier())
}

func TestLookupRequest(t *testing.T) {
	var got *http.Request
	c := newClient(func(req *http.Request) (*http.Response, error) {
		got = req
		return jsonResponse(http.StatusOK, `{"status":"ok","results":[]}`), nil
	})

	out := c.Lookup(context.Background(), 99, "abcdef")
	assert.Equal(t, "ok", out["status"])

	require.NotNil(t, got)
	assert.Equal(t, "http", got.URL.Scheme)
	assert.Equal(t, "api.acoustid.org", got.URL.Host)
	assert.Equal(t, "/v2/lookup", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "test-key", q.Get("client"))
	assert.Equal(t, "recordings+releases+releasegroups+tracks+compress", q.Get("meta"))
	assert.Equal(t, "99", q.Get("duration"))
	assert.Equal(t, "abcdef", q.Get("fingerprint"))
	assert.Equal(t, "gzip", got.Header.Get("Accept-Encoding"))
}

func TestLookupInvalidInput(t *testing.T) {
	c := newClient(func(*http.Request) (*http.Response, error) {
		t.Fatal("network must not be reached")
		return nil, nil
	})
	tests := []struct {
		duration    int
		fingerprint string
	}{
		{0, "f"},
		{10, ""},
		{0, ""},
		{-5, "f"},
	}
	for _, tt := range tests {
		assert.Equal(t, map[string]any{}, c.Lookup(context.Background(), tt.duration, tt.fingerprint))
	}
}

func TestLookupCaches(t *testing.T) {
	calls := 0
	c := newClient(func(*http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{}`), nil
	})
	assert.Equal(t, map[string]any{}, c.Lookup(context.Background(), 10, "fp"))
	assert.Equal(t, map[string]any{}, c.Lookup(context.Background(), 10, "fp"))
	assert.Equal(t, 1, calls)
}

func TestLookupGzipBody(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(`{"status":"ok"}`))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	c := newClient(func(*http.Request) (*http.Response, error) {
		resp := jsonResponse(http.StatusOK, "")
		resp.Body = io.NopCloser(bytes.NewReader(buf.Bytes()))
		resp.Header.Set("Content-Encoding", "gzip")
		return resp, nil
	})
	assert.Equal(t, "ok", c.Lookup(context.Background(), 10, "fp")["status"])
}

func TestLookupFailuresAreEmpty(t *testing.T) {
	tests := map[string]roundTripFunc{
		"bad json": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `not-json`), nil
		},
		"transport": func(*http.Request) (*http.Response, error) {
			return nil, errors.New("fail")
		},
		"status": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadRequest, `{"status":"error"}`), nil
		},
		"array": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `[1]`), nil
		},
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, map[string]any{}, newClient(fn).Lookup(context.Background(), 10, "fp"))
		})
	}
}
