package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Digital-Shane/mediatag/internal/provider"
	"github.com/sourcegraph/conc/iter"
)

const (
	tvLinkBase = "https://www.themoviedb.org/tv/"
	// seasons are fetched in parallel but stay behind the shared limiter
	seasonWorkers = 4
)

var _ provider.EpisodeListProvider = (*TVClient)(nil)

// TVClient is the TMDb TV series client.
type TVClient struct {
	provider.BaseDatasource
	api
}

// NewTV creates a TMDb TV client.
func NewTV(apiKey string, opts ...provider.RestOption) *TVClient {
	return &TVClient{
		BaseDatasource: provider.BaseDatasource{ID: TVIdentifier},
		api:            newAPI(apiKey, TVIdentifier, opts),
	}
}

// HasSeasonSupport reports true, TMDb numbers episodes by season.
func (c *TVClient) HasSeasonSupport() bool { return true }

// Search finds series by name. A trailing year narrows the first air date.
func (c *TVClient) Search(ctx context.Context, query, locale string) []provider.SearchResult {
	name, year := SplitNameAndYear(query)
	params := url.Values{"query": {name}}
	if year != nil {
		params.Set("first_air_date_year", strconv.Itoa(*year))
	}

	data := c.requestJSON(ctx, "search/tv", params, locale)
	var results []provider.SearchResult
	for _, item := range provider.AsMaps(data["results"]) {
		id := provider.AsInt(item["id"])
		if id == nil {
			continue
		}
		showName, original := seriesNames(item)
		result := provider.SearchResult{ID: *id, Name: showName}
		if original != nil && showName != nil && *original != *showName {
			result.AliasNames = []string{*original}
		}
		results = append(results, result)
	}
	return results
}

// GetSeriesInfo fetches the series detail record.
func (c *TVClient) GetSeriesInfo(ctx context.Context, series provider.SearchResult, locale string) (provider.SeriesInfo, error) {
	data := c.requestJSON(ctx, fmt.Sprintf("tv/%d", series.ID), nil, locale)

	info := provider.SeriesInfo{ID: series.ID, Name: series.Name}
	if len(data) == 0 {
		return info, nil
	}

	name, original := seriesNames(data)
	if name != nil {
		info.Name = name
	}
	if original != nil && info.Name != nil && *original != *info.Name {
		info.AliasNames = []string{*original}
	}
	info.Status = provider.NonEmptyString(data["status"])
	if runtimes := provider.AsList(data["episode_run_time"]); len(runtimes) > 0 {
		info.Runtime = provider.AsInt(runtimes[0])
	}
	for _, genre := range provider.AsMaps(data["genres"]) {
		if g, _ := provider.AsString(genre["name"]); g != "" {
			info.Genres = append(info.Genres, g)
		}
	}
	if networks := provider.AsMaps(data["networks"]); len(networks) > 0 {
		info.Network = provider.NonEmptyString(networks[0]["name"])
	}
	return info, nil
}

// GetEpisodeList fetches every season listed by the series and flattens
// them. Regular episodes keep the season list order and season 0 episodes
// follow as specials. TMDb has a single numbering so order is ignored.
func (c *TVClient) GetEpisodeList(ctx context.Context, series provider.SearchResult, order, locale string) ([]provider.Episode, error) {
	show := c.requestJSON(ctx, fmt.Sprintf("tv/%d", series.ID), nil, locale)

	name, _ := seriesNames(show)
	if name == nil {
		name = series.Name
	}
	info := &provider.SeriesInfo{ID: series.ID, Name: name}
	seriesName := ""
	if name != nil {
		seriesName = *name
	}

	var seasons []int
	for _, s := range provider.AsMaps(show["seasons"]) {
		if n := provider.AsInt(s["season_number"]); n != nil {
			seasons = append(seasons, *n)
		}
	}

	mapper := iter.Mapper[int, map[string]any]{MaxGoroutines: seasonWorkers}
	payloads := mapper.Map(seasons, func(season *int) map[string]any {
		return c.requestJSON(ctx, fmt.Sprintf("tv/%d/season/%d", series.ID, *season), nil, locale)
	})

	var regular, specials []provider.Episode
	for i, payload := range payloads {
		season := seasons[i]
		for _, item := range provider.AsMaps(payload["episodes"]) {
			number := provider.AsInt(item["episode_number"])
			ep := provider.Episode{
				SeriesName: seriesName,
				Title:      trimmedString(item["name"]),
				Airdate:    provider.NonEmptyString(item["air_date"]),
				ID:         provider.AsInt(item["id"]),
				SeriesInfo: info,
			}
			if season > 0 {
				ep.Season = provider.AsInt(item["season_number"])
				if ep.Season == nil {
					ep.Season = provider.Ptr(season)
				}
				ep.Episode = number
				regular = append(regular, ep)
				continue
			}
			ep.SpecialNumber = number
			specials = append(specials, ep)
		}
	}
	return append(regular, specials...), nil
}

// GetEpisodeListLink returns the public series page.
func (c *TVClient) GetEpisodeListLink(series provider.SearchResult) string {
	return tvLinkBase + strconv.Itoa(series.ID)
}

// seriesNames returns the trimmed display name, falling back to the
// original name, and the original name itself.
func seriesNames(item map[string]any) (name, original *string) {
	original = trimmedString(item["original_name"])
	name = trimmedString(item["name"])
	if name == nil {
		name = original
	}
	return name, original
}

func trimmedString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
