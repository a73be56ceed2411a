// Package opensubtitles implements a subtitle search client for the
// OpenSubtitles REST index.
package opensubtitles

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/Digital-Shane/mediatag/internal/media"
	"github.com/Digital-Shane/mediatag/internal/provider"
)

const (
	// Identifier identifies the OpenSubtitles client.
	Identifier = "OpenSubtitles"

	baseURL        = "https://rest.opensubtitles.org"
	requestTimeout = 20 * time.Second
	cacheTTL       = time.Hour
	cacheSize      = 1024
	burst          = 40
	burstWindow    = 10 * time.Second
)

var _ provider.SubtitleProvider = (*Client)(nil)

// Client is the OpenSubtitles client.
type Client struct {
	provider.BaseDatasource
	rest *provider.RestClient
}

// New creates a client announcing itself as "<appName> v<appVersion>".
func New(appName, appVersion string, opts ...provider.RestOption) *Client {
	all := append([]provider.RestOption{
		provider.WithShortCache(cacheSize, cacheTTL),
		provider.WithRateLimiter(rate.NewLimiter(rate.Every(burstWindow/burst), burst)),
		provider.WithUserAgent(fmt.Sprintf("%s v%s", appName, appVersion)),
	}, opts...)
	all = append(all, provider.WithLogFields("provider", Identifier))
	return &Client{
		BaseDatasource: provider.BaseDatasource{ID: Identifier},
		rest:           provider.NewRestClient(all...),
	}
}

// SearchSubtitles searches subtitles by a free-text tag such as a release
// name.
func (c *Client) SearchSubtitles(ctx context.Context, query string) []provider.SubtitleSearchResult {
	tag := strings.ToLower(strings.TrimSpace(query))
	if tag == "" {
		return nil
	}
	return c.search(ctx, "/search/query-"+url.PathEscape(tag))
}

// SearchByHash searches subtitles matching a movie hash and file size
// exactly.
func (c *Client) SearchByHash(ctx context.Context, hash string, size int64) []provider.SubtitleSearchResult {
	if hash == "" || size <= 0 {
		return nil
	}
	return c.search(ctx, fmt.Sprintf("/search/moviebytesize-%d/moviehash-%s", size, url.PathEscape(hash)))
}

// SearchBest searches by the hash of the video at path and falls back to a
// tag search on its file name when nothing matches.
func (c *Client) SearchBest(ctx context.Context, fs afero.Fs, path string) []provider.SubtitleSearchResult {
	hash, size, err := provider.MovieHash(fs, path)
	if err != nil {
		c.rest.Logger().Warn("movie hash failed", "path", path, "err", err)
	} else if results := c.SearchByHash(ctx, hash, size); len(results) > 0 {
		return results
	}
	return c.SearchSubtitles(ctx, media.QueryTag(filepath.Base(path)))
}

func (c *Client) search(ctx context.Context, resource string) []provider.SubtitleSearchResult {
	data := c.rest.GetJSON(ctx, baseURL+resource, provider.RequestOptions{
		Timeout:      requestTimeout,
		RequireHTTPS: true,
	})

	var results []provider.SubtitleSearchResult
	for _, item := range provider.AsMaps(data) {
		name, _ := provider.AsString(item["SubFileName"])
		link := provider.NonEmptyString(item["ZipDownloadLink"])
		if link == nil {
			link = provider.NonEmptyString(item["SubDownloadLink"])
		}
		results = append(results, provider.SubtitleSearchResult{
			Name:   name,
			Lang:   provider.NonEmptyString(item["SubLanguageID"]),
			ImdbID: provider.AsInt(item["IDMovieImdb"]),
			Score:  score(item["Score"]),
			URL:    link,
		})
	}
	return results
}

// score truncates the fractional relevance scores the index reports.
func score(v any) *int {
	f := provider.AsFloat(v)
	if f == nil {
		return nil
	}
	return provider.Ptr(int(*f))
}
