// Package omdb implements an OMDb movie identification client.
package omdb

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/omdb"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

const (
	// Identifier identifies the OMDb client.
	Identifier = "OMDb"

	baseURL        = "https://www.omdbapi.com/"
	requestTimeout = 15 * time.Second
	cacheTTL       = 24 * time.Hour
	cacheSize      = 4096
	rateRequests   = 2
	rateWindow     = time.Second
)

var (
	_ provider.MovieIdentifier = (*Client)(nil)

	trailingYear = regexp.MustCompile(`^(.+?)\s+(19\d{2}|20\d{2})$`)
)

// Client is the OMDb client.
type Client struct {
	provider.BaseDatasource
	apiKey string
	rest   *provider.RestClient
}

// New creates an OMDb client for apiKey.
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

// SplitNameAndYear separates a trailing " YYYY" from query.
func SplitNameAndYear(query string) (string, *int) {
	query = strings.TrimSpace(query)
	m := trailingYear.FindStringSubmatch(query)
	if m == nil {
		return query, nil
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return query, nil
	}
	return strings.TrimSpace(m[1]), &year
}

// SearchMovie searches movies by title with an optional trailing year.
// Entries that are not movies are skipped.
func (c *Client) SearchMovie(ctx context.Context, query, locale string) []provider.Movie {
	name, year := SplitNameAndYear(query)
	params := url.Values{"s": {name}, "type": {"movie"}}
	if year != nil {
		params.Set("y", strconv.Itoa(*year))
	}

	data := c.request(ctx, params)
	var movies []provider.Movie
	for _, item := range provider.AsMaps(data["Search"]) {
		if kind, _ := provider.AsString(item["Type"]); !strings.EqualFold(kind, "movie") {
			continue
		}
		title, _ := provider.AsString(item["Title"])
		yearText, _ := provider.AsString(item["Year"])
		imdbID, _ := provider.AsString(item["imdbID"])
		movies = append(movies, provider.Movie{
			Name:       title,
			AliasNames: []string{},
			Year:       digits(yearText),
			ImdbID:     provider.ParseImdbID(imdbID),
		})
	}
	return movies
}

// GetMovieDescriptor looks movie up by its IMDb id. Movies without one
// cannot be resolved.
func (c *Client) GetMovieDescriptor(ctx context.Context, movie provider.Movie, locale string) *provider.Movie {
	if movie.ImdbID == nil || *movie.ImdbID == 0 {
		return nil
	}
	data := c.request(ctx, url.Values{"i": {provider.FormatImdbID(*movie.ImdbID)}})
	if resp, _ := provider.AsString(data["Response"]); !strings.EqualFold(resp, "true") {
		return nil
	}

	result, err := decodeResult(data)
	if err != nil {
		c.rest.Logger().Warn("malformed movie result", "imdb_id", *movie.ImdbID, "err", err)
		return nil
	}

	out := &provider.Movie{
		Name:       strings.TrimSpace(result.Title),
		AliasNames: []string{},
		Year:       movie.Year,
		ImdbID:     provider.Ptr(*movie.ImdbID),
	}
	if year := digits(omdb.FirstYear(result.Year)); year != nil {
		out.Year = year
	}
	if locale != "" {
		out.Language = provider.Ptr(locale)
	}
	return out
}

func (c *Client) request(ctx context.Context, params url.Values) map[string]any {
	params.Set("apikey", c.apiKey)
	data := c.rest.GetJSON(ctx, baseURL+"?"+params.Encode(), provider.RequestOptions{
		Timeout:      requestTimeout,
		RequireHTTPS: true,
	})
	return provider.AsMap(data)
}

// decodeResult maps the identifying fields of a title payload onto the
// typed OMDb record.
func decodeResult(data map[string]any) (*omdb.MovieResult, error) {
	raw, err := json.Marshal(map[string]any{
		"Title":  data["Title"],
		"Year":   data["Year"],
		"imdbID": data["imdbID"],
	})
	if err != nil {
		return nil, err
	}
	var result omdb.MovieResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// digits parses s when it is made of ASCII digits only.
func digits(s string) *int {
	if s == "" {
		return nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
