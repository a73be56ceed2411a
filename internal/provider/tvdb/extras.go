package tvdb

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

const defaultArtworkKey = "poster"

// GetLanguages lists the language abbreviations TheTVDB supports.
func (c *Client) GetLanguages(ctx context.Context) ([]string, error) {
	data, err := c.request(ctx, "languages", nil, "")
	if err != nil {
		return nil, err
	}
	var langs []string
	for _, item := range provider.AsMaps(data["data"]) {
		if abbr, _ := provider.AsString(item["abbreviation"]); abbr != "" {
			langs = append(langs, abbr)
		}
	}
	return langs, nil
}

// GetActors lists the series cast ordered by sortOrder. Actors without an
// order come last.
func (c *Client) GetActors(ctx context.Context, seriesID int, locale string) ([]provider.Actor, error) {
	data, err := c.request(ctx, fmt.Sprintf("series/%d/actors", seriesID), nil, locale)
	if err != nil {
		return nil, err
	}

	var actors []provider.Actor
	for _, item := range provider.AsMaps(data["data"]) {
		actors = append(actors, provider.Actor{
			Name:  provider.StringPtr(item["name"]),
			Role:  provider.StringPtr(item["role"]),
			Order: provider.AsInt(item["sortOrder"]),
			Image: bannerURL(item["image"]),
		})
	}
	sort.SliceStable(actors, func(i, j int) bool {
		return lessNilLast(actors[i].Order, actors[j].Order)
	})
	return actors, nil
}

// GetEpisodeDetails fetches overview, rating and credits of one episode.
func (c *Client) GetEpisodeDetails(ctx context.Context, episodeID int, locale string) (*provider.EpisodeDetails, error) {
	data, err := c.request(ctx, fmt.Sprintf("episodes/%d", episodeID), nil, locale)
	if err != nil {
		return nil, err
	}
	d := provider.AsMap(data["data"])
	details := &provider.EpisodeDetails{
		SeriesID: provider.AsInt(d["seriesId"]),
		Overview: provider.StringPtr(d["overview"]),
		Rating:   provider.AsFloat(d["siteRating"]),
		Votes:    provider.AsInt(d["siteRatingCount"]),
	}
	credits := []struct{ key, role string }{
		{"directors", "Director"},
		{"writers", "Writer"},
		{"guestStars", "Guest Star"},
	}
	for _, credit := range credits {
		for _, name := range provider.AsList(d[credit.key]) {
			if s, ok := name.(string); ok && s != "" {
				details.People = append(details.People, provider.Person{Name: s, Role: credit.role})
			}
		}
	}
	return details, nil
}

// GetArtwork queries series images by key type (poster, fanart, series,
// season, seasonwide). An empty category queries posters. Results are
// sorted by rating, highest first, with unrated images last.
func (c *Client) GetArtwork(ctx context.Context, mediaID int, category, locale string) []provider.Artwork {
	if category == "" {
		category = defaultArtworkKey
	}
	data, err := c.request(ctx, fmt.Sprintf("series/%d/images/query", mediaID),
		url.Values{"keyType": {category}}, locale)
	if err != nil {
		c.rest.Logger().Warn("artwork query failed", "series_id", mediaID, "err", err)
		return nil
	}

	var out []provider.Artwork
	for _, item := range provider.AsMaps(data["data"]) {
		link := bannerURL(item["fileName"])
		if link == nil {
			continue
		}
		parts := []string{category}
		for _, key := range []string{"subKey", "resolution"} {
			if s, _ := provider.AsString(item[key]); s != "" {
				parts = append(parts, s)
			}
		}
		out = append(out, provider.Artwork{
			Category: strings.Join(parts, ","),
			URL:      *link,
			Rating:   provider.AsFloat(provider.Field(item, "ratingsInfo", "average")),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Rating, out[j].Rating
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a > *b
	})
	return out
}

func bannerURL(v any) *string {
	path, _ := provider.AsString(v)
	if path == "" {
		return nil
	}
	return provider.Ptr(bannerBaseURL + strings.TrimPrefix(path, "/"))
}

func lessNilLast(a, b *int) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return *a < *b
}
