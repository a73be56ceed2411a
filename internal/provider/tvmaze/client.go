// Package tvmaze implements the keyless TVmaze episode list client.
package tvmaze

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

const (
	// Identifier identifies the TVmaze client.
	Identifier = "TVmaze"

	host           = "api.tvmaze.com"
	baseURL        = "http://" + host + "/"
	linkBase       = "http://www.tvmaze.com/shows/"
	requestTimeout = 15 * time.Second
	cacheTTL       = 24 * time.Hour
	cacheSize      = 2048
)

var (
	_ provider.EpisodeListProvider = (*Client)(nil)

	allowedHosts = []string{host}
)

// Client is the TVmaze client. TVmaze needs no key and is reached over
// plain http.
type Client struct {
	provider.BaseDatasource
	rest *provider.RestClient
}

// New creates a TVmaze client.
func New(opts ...provider.RestOption) *Client {
	all := append([]provider.RestOption{
		provider.WithShortCache(cacheSize, cacheTTL),
		provider.WithLongCache(cacheSize, cacheTTL),
	}, opts...)
	all = append(all, provider.WithLogFields("provider", Identifier))
	return &Client{
		BaseDatasource: provider.BaseDatasource{ID: Identifier},
		rest:           provider.NewRestClient(all...),
	}
}

// HasSeasonSupport reports true.
func (c *Client) HasSeasonSupport() bool { return true }

// GetEpisodeListLink returns the public show page.
func (c *Client) GetEpisodeListLink(series provider.SearchResult) string {
	return linkBase + strconv.Itoa(series.ID)
}

// Search finds shows by name. Locale is ignored.
func (c *Client) Search(ctx context.Context, query, locale string) []provider.SearchResult {
	data := c.get(ctx, "search/shows?"+url.Values{"q": {query}}.Encode())

	var results []provider.SearchResult
	for _, item := range provider.AsMaps(data) {
		show := provider.AsMap(item["show"])
		if show == nil {
			continue
		}
		id := provider.AsInt(show["id"])
		if id == nil {
			continue
		}
		name, _ := provider.AsString(show["name"])
		results = append(results, provider.SearchResult{ID: *id, Name: provider.Ptr(strings.TrimSpace(name))})
	}
	return results
}

// GetSeriesInfo fetches the show record.
func (c *Client) GetSeriesInfo(ctx context.Context, series provider.SearchResult, locale string) (provider.SeriesInfo, error) {
	data := provider.AsMap(c.get(ctx, fmt.Sprintf("shows/%d", series.ID)))

	info := provider.SeriesInfo{ID: series.ID}
	if name, ok := provider.AsString(data["name"]); ok {
		info.Name = provider.Ptr(strings.TrimSpace(name))
	}
	info.Status = provider.NonEmptyString(data["status"])
	info.Runtime = provider.AsInt(data["runtime"])
	for _, g := range provider.AsList(data["genres"]) {
		if s, ok := g.(string); ok && s != "" {
			info.Genres = append(info.Genres, s)
		}
	}
	info.Network = provider.NonEmptyString(provider.Field(data, "network", "name"))
	return info, nil
}

// GetEpisodeList lists episodes in the order TVmaze returns them. Order and
// locale are ignored.
func (c *Client) GetEpisodeList(ctx context.Context, series provider.SearchResult, order, locale string) ([]provider.Episode, error) {
	info, err := c.GetSeriesInfo(ctx, series, locale)
	if err != nil {
		return nil, err
	}
	seriesName := ""
	if info.Name != nil {
		seriesName = *info.Name
	}

	data := c.get(ctx, fmt.Sprintf("shows/%d/episodes", series.ID))
	var episodes []provider.Episode
	for _, item := range provider.AsMaps(data) {
		episodes = append(episodes, provider.Episode{
			SeriesName: seriesName,
			Season:     provider.AsInt(item["season"]),
			Episode:    provider.AsInt(item["number"]),
			Title:      provider.NonEmptyString(item["name"]),
			Airdate:    provider.NonEmptyString(item["airdate"]),
			ID:         provider.AsInt(item["id"]),
			SeriesInfo: &info,
		})
	}
	return episodes, nil
}

func (c *Client) get(ctx context.Context, resource string) any {
	return c.rest.GetJSON(ctx, baseURL+resource, provider.RequestOptions{
		Timeout:          requestTimeout,
		AllowedHTTPHosts: allowedHosts,
	})
}
