package provider

import (
	"io"
	"net/http"
	"strings"
	"sync/atomic"
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

// countingClient answers every request with body and counts calls.
func countingClient(status int, body string, calls *atomic.Int32) *http.Client {
	return newTestClient(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(status, body), nil
	})
}
