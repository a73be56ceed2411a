package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultShortTTL  = 24 * time.Hour
	defaultLongTTL   = 7 * 24 * time.Hour
	maxErrorBodySize = 512
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// RequestOptions controls a single RestClient request.
type RequestOptions struct {
	Headers map[string]string
	// Timeout bounds the request. Zero means 30 seconds.
	Timeout time.Duration
	// CacheKey defaults to the request URL.
	CacheKey     string
	UseLongCache bool
	// SkipCache neither reads nor stores the response.
	SkipCache    bool
	RequireHTTPS bool
	// AllowedHTTPHosts lists host[:port] values that may be reached over
	// plain http when RequireHTTPS is false. Nil allows any host.
	AllowedHTTPHosts []string
}

// RestClient executes provider GET requests through the scheme gate, a
// short and a long lived cache, and an optional rate limiter. Each provider
// owns one.
type RestClient struct {
	httpClient HTTPDoer
	limiter    Limiter
	short      *TTLCache
	long       *TTLCache
	logger     *log.Logger
	userAgent  string

	// caches are built once every option has run; each TTLCache owns a
	// cleanup goroutine that never exits
	shortSpec cacheSpec
	longSpec  cacheSpec
}

type cacheSpec struct {
	size int
	ttl  time.Duration
}

// RestOption configures a RestClient.
type RestOption func(*RestClient)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c HTTPDoer) RestOption {
	return func(r *RestClient) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithRateLimiter sets the limiter consulted on every cache miss.
func WithRateLimiter(l Limiter) RestOption {
	return func(r *RestClient) {
		r.limiter = l
	}
}

// WithShortCache configures the short lived cache.
func WithShortCache(size int, ttl time.Duration) RestOption {
	return func(r *RestClient) {
		r.shortSpec = cacheSpec{size: size, ttl: ttl}
	}
}

// WithLongCache configures the long lived cache.
func WithLongCache(size int, ttl time.Duration) RestOption {
	return func(r *RestClient) {
		r.longSpec = cacheSpec{size: size, ttl: ttl}
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(l *log.Logger) RestOption {
	return func(r *RestClient) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLogFields adds key/value pairs to every log line. Apply it after
// WithLogger.
func WithLogFields(keyvals ...any) RestOption {
	return func(r *RestClient) {
		r.logger = r.logger.With(keyvals...)
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) RestOption {
	return func(r *RestClient) {
		r.userAgent = ua
	}
}

// NewRestClient creates a RestClient. Without options it has 2048 entry
// caches of 24 hours (short) and 7 days (long), no rate limiter and the
// default HTTP client.
func NewRestClient(opts ...RestOption) *RestClient {
	r := &RestClient{
		httpClient: http.DefaultClient,
		logger:     log.Default(),
		shortSpec:  cacheSpec{size: 2048, ttl: defaultShortTTL},
		longSpec:   cacheSpec{size: 2048, ttl: defaultLongTTL},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.short = NewTTLCache(r.shortSpec.size, r.shortSpec.ttl)
	r.long = NewTTLCache(r.longSpec.size, r.longSpec.ttl)
	return r
}

// GetJSON returns the decoded JSON document at rawURL, either an object or an
// array. Any failure is logged and yields an empty object. Callers own the
// returned value; the cache keeps its own copy.
func (r *RestClient) GetJSON(ctx context.Context, rawURL string, opts RequestOptions) any {
	data, err := r.FetchJSON(ctx, rawURL, opts)
	if err != nil {
		r.logFailure(rawURL, opts, err)
		return map[string]any{}
	}
	return data
}

// GetBytes returns the raw body at rawURL. Any failure is logged and yields nil.
func (r *RestClient) GetBytes(ctx context.Context, rawURL string, opts RequestOptions) []byte {
	data, err := r.FetchBytes(ctx, rawURL, opts)
	if err != nil {
		r.logFailure(rawURL, opts, err)
		return nil
	}
	return data
}

// FetchJSON is GetJSON with the failure returned instead of swallowed.
func (r *RestClient) FetchJSON(ctx context.Context, rawURL string, opts RequestOptions) (any, error) {
	if !urlPermitted(rawURL, opts.RequireHTTPS, opts.AllowedHTTPHosts) {
		return nil, fmt.Errorf("%w: %s", ErrBlockedURL, rawURL)
	}

	cache, key := r.cacheFor(rawURL, opts)
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if _, raw := cached.([]byte); !raw {
				return cloneJSON(cached), nil
			}
		}
	}

	body, err := r.do(ctx, http.MethodGet, rawURL, nil, opts)
	if err != nil {
		return nil, err
	}

	data, err := decodeJSON(body)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Set(key, data)
		return cloneJSON(data), nil
	}
	return data, nil
}

// FetchBytes is GetBytes with the failure returned instead of swallowed.
func (r *RestClient) FetchBytes(ctx context.Context, rawURL string, opts RequestOptions) ([]byte, error) {
	if !urlPermitted(rawURL, opts.RequireHTTPS, opts.AllowedHTTPHosts) {
		return nil, fmt.Errorf("%w: %s", ErrBlockedURL, rawURL)
	}

	cache, key := r.cacheFor(rawURL, opts)
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if raw, ok := cached.([]byte); ok {
				return bytes.Clone(raw), nil
			}
		}
	}

	body, err := r.do(ctx, http.MethodGet, rawURL, nil, opts)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Set(key, bytes.Clone(body))
	}
	return body, nil
}

// PostJSON sends payload as a JSON body and decodes the JSON response. POST
// responses are never cached.
func (r *RestClient) PostJSON(ctx context.Context, rawURL string, payload any, opts RequestOptions) (any, error) {
	if !urlPermitted(rawURL, opts.RequireHTTPS, opts.AllowedHTTPHosts) {
		return nil, fmt.Errorf("%w: %s", ErrBlockedURL, rawURL)
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	headers := make(map[string]string, len(opts.Headers)+1)
	for k, v := range opts.Headers {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"
	opts.Headers = headers

	body, err := r.do(ctx, http.MethodPost, rawURL, buf, opts)
	if err != nil {
		return nil, err
	}
	return decodeJSON(body)
}

// Forget drops the cached response a request with these options would hit.
func (r *RestClient) Forget(rawURL string, opts RequestOptions) {
	if cache, key := r.cacheFor(rawURL, opts); cache != nil {
		cache.Remove(key)
	}
}

// Purge empties both caches.
func (r *RestClient) Purge() {
	r.short.Purge()
	r.long.Purge()
}

// Logger returns the client's logger.
func (r *RestClient) Logger() *log.Logger {
	return r.logger
}

// cacheFor selects the cache and key for a request. A nil cache means the
// request bypasses caching.
func (r *RestClient) cacheFor(rawURL string, opts RequestOptions) (*TTLCache, string) {
	if opts.SkipCache {
		return nil, ""
	}
	key := opts.CacheKey
	if key == "" {
		key = rawURL
	}
	if opts.UseLongCache {
		return r.long, key
	}
	return r.short, key
}

func (r *RestClient) do(ctx context.Context, method, rawURL string, payload []byte, opts RequestOptions) ([]byte, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, err
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	reader := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") && !resp.Uncompressed {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("open gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (r *RestClient) logFailure(rawURL string, opts RequestOptions, err error) {
	if isBlocked(err) {
		r.logger.Debug("request blocked", "url", rawURL, "require_https", opts.RequireHTTPS)
		return
	}
	r.logger.Warn("request failed",
		"url", rawURL,
		"require_https", opts.RequireHTTPS,
		"use_long_cache", opts.UseLongCache,
		"err", err,
	)
}

func decodeJSON(body []byte) (any, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if data == nil {
		return map[string]any{}, nil
	}
	return data, nil
}

func isBlocked(err error) bool {
	return errors.Is(err, ErrBlockedURL)
}
