// Package acoustid implements the AcoustID fingerprint lookup client.
package acoustid

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

const (
	// Identifier identifies the AcoustID client.
	Identifier = "AcoustID"

	host           = "api.acoustid.org"
	lookupURL      = "http://" + host + "/v2/lookup"
	lookupMeta     = "recordings+releases+releasegroups+tracks+compress"
	requestTimeout = 20 * time.Second
	cacheTTL       = 24 * time.Hour
	cacheSize      = 2048
	rateRequests   = 5
	rateWindow     = time.Second
)

var (
	_ provider.MusicIdentifier = (*Client)(nil)

	allowedHosts = []string{host}
)

// Client is the AcoustID client.
type Client struct {
	provider.BaseDatasource
	apiKey string
	rest   *provider.RestClient
}

// New creates an AcoustID client for apiKey.
func New(apiKey string, opts ...provider.RestOption) *Client {
	all := append([]provider.RestOption{
		provider.WithShortCache(cacheSize, cacheTTL),
		provider.WithLongCache(cacheSize, cacheTTL),
		provider.WithRateLimiter(provider.NewRateLimiter(rateRequests, rateWindow)),
	}, opts...)
	all = append(all, provider.WithLogFields("provider", Identifier))
	return &Client{
		BaseDatasource: provider.BaseDatasource{ID: Identifier},
		apiKey:         apiKey,
		rest:           provider.NewRestClient(all...),
	}
}

// Lookup returns the AcoustID response for a Chromaprint fingerprint of an
// audio stream durationSeconds long. Invalid input, failed requests and
// responses that are not a JSON object all yield an empty map.
func (c *Client) Lookup(ctx context.Context, durationSeconds int, fingerprint string) map[string]any {
	if durationSeconds < 1 || fingerprint == "" {
		return map[string]any{}
	}
	params := url.Values{
		"client":      {c.apiKey},
		"meta":        {lookupMeta},
		"duration":    {strconv.Itoa(durationSeconds)},
		"fingerprint": {fingerprint},
	}
	data, ok := c.rest.GetJSON(ctx, lookupURL+"?"+params.Encode(), provider.RequestOptions{
		Headers:          map[string]string{"Accept-Encoding": "gzip"},
		Timeout:          requestTimeout,
		AllowedHTTPHosts: allowedHosts,
	}).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return data
}
