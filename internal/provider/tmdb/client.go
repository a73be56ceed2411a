// Package tmdb implements The Movie Database movie and TV clients.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/mediatag/internal/provider"
	"github.com/ryanbradynd05/go-tmdb"
)

const (
	// MovieIdentifier identifies the movie client.
	MovieIdentifier = "TheMovieDB"
	// TVIdentifier identifies the TV client.
	TVIdentifier = "TheMovieDB::TV"

	baseURL        = "https://api.themoviedb.org/3/"
	imageBaseURL   = "https://image.tmdb.org/t/p/original"
	requestTimeout = 15 * time.Second
	shortTTL       = 24 * time.Hour
	longTTL        = 7 * 24 * time.Hour
	cacheSize      = 2048
	// TMDB allows ~40 requests per 10 seconds
	rateRequests = 35
	rateWindow   = 10 * time.Second
)

var (
	_ provider.MovieIdentifier = (*Client)(nil)
	_ provider.ArtworkProvider = (*Client)(nil)

	trailingYear = regexp.MustCompile(`^(.+?)(?:\s*\((19\d{2}|20\d{2})\)|\s+(19\d{2}|20\d{2}))$`)
)

// api holds what the movie and TV clients share: the key and the request
// pipeline.
type api struct {
	apiKey string
	rest   *provider.RestClient
}

func newAPI(apiKey, identifier string, opts []provider.RestOption) api {
	defaults := []provider.RestOption{
		provider.WithShortCache(cacheSize, shortTTL),
		provider.WithLongCache(cacheSize, longTTL),
		provider.WithRateLimiter(provider.NewRateLimiter(rateRequests, rateWindow)),
	}
	all := append(defaults, opts...)
	all = append(all, provider.WithLogFields("provider", identifier))
	return api{apiKey: apiKey, rest: provider.NewRestClient(all...)}
}

// requestJSON issues a GET against the API. Search endpoints use the short
// cache and everything else the long one.
func (a api) requestJSON(ctx context.Context, path string, params url.Values, locale string) map[string]any {
	q := url.Values{}
	q.Set("api_key", a.apiKey)
	q.Set("language", NormalizeLanguage(locale))
	for k, v := range params {
		q[k] = v
	}
	data := a.rest.GetJSON(ctx, baseURL+path+"?"+q.Encode(), provider.RequestOptions{
		Timeout:      requestTimeout,
		UseLongCache: !strings.HasPrefix(path, "search/"),
		RequireHTTPS: true,
	})
	return provider.AsMap(data)
}

// NormalizeLanguage converts a locale into the language-REGION form TMDb
// expects. Empty defaults to en-US and the legacy codes iw and in map to
// Hebrew and Indonesian.
func NormalizeLanguage(locale string) string {
	locale = strings.TrimSpace(strings.ReplaceAll(locale, "_", "-"))
	if locale == "" {
		return "en-US"
	}
	lang, region, _ := strings.Cut(locale, "-")
	lang = strings.ToLower(lang)
	switch lang {
	case "iw", "he":
		lang = "he"
		if region == "" {
			region = "IL"
		}
	case "in", "id":
		lang = "id"
		if region == "" {
			region = "ID"
		}
	}
	if region == "" {
		return lang
	}
	return lang + "-" + strings.ToUpper(region)
}

// SplitNameAndYear separates a trailing "(YYYY)" or "YYYY" year from query.
func SplitNameAndYear(query string) (string, *int) {
	query = strings.TrimSpace(query)
	m := trailingYear.FindStringSubmatch(query)
	if m == nil {
		return query, nil
	}
	yearText := m[2]
	if yearText == "" {
		yearText = m[3]
	}
	name := strings.TrimSpace(m[1])
	year, err := strconv.Atoi(yearText)
	if err != nil || name == "" {
		return query, nil
	}
	return name, &year
}

// Client is the TMDb movie client.
type Client struct {
	provider.BaseDatasource
	api
}

// New creates a TMDb movie client.
func New(apiKey string, opts ...provider.RestOption) *Client {
	return &Client{
		BaseDatasource: provider.BaseDatasource{ID: MovieIdentifier},
		api:            newAPI(apiKey, MovieIdentifier, opts),
	}
}

// SearchMovie searches movies by name with an optional trailing year.
func (c *Client) SearchMovie(ctx context.Context, query, locale string) []provider.Movie {
	name, year := SplitNameAndYear(query)
	params := url.Values{"query": {name}}
	if year != nil {
		params.Set("year", strconv.Itoa(*year))
	}
	language := NormalizeLanguage(locale)

	data := c.requestJSON(ctx, "search/movie", params, locale)
	var movies []provider.Movie
	for _, item := range provider.AsMaps(data["results"]) {
		id := provider.AsInt(item["id"])
		if id == nil {
			continue
		}
		title, _ := provider.AsString(item["title"])
		if title == "" {
			title, _ = provider.AsString(item["original_title"])
		}
		movies = append(movies, provider.Movie{
			Name:     strings.TrimSpace(title),
			Year:     yearFromDate(item["release_date"]),
			TmdbID:   id,
			Language: provider.Ptr(language),
		})
	}
	return movies
}

// GetMovieDescriptor resolves movie by its TMDb id, or by its IMDb id through
// the find endpoint when no TMDb id is known.
func (c *Client) GetMovieDescriptor(ctx context.Context, movie provider.Movie, locale string) *provider.Movie {
	tmdbID := movie.TmdbID
	if tmdbID == nil && movie.ImdbID != nil {
		found := c.requestJSON(ctx, "find/"+provider.FormatImdbID(*movie.ImdbID),
			url.Values{"external_source": {"imdb_id"}}, locale)
		if results := provider.AsMaps(found["movie_results"]); len(results) > 0 {
			tmdbID = provider.AsInt(results[0]["id"])
		}
	}
	if tmdbID == nil {
		return nil
	}

	data := c.requestJSON(ctx, fmt.Sprintf("movie/%d", *tmdbID), nil, locale)
	if len(data) == 0 {
		return nil
	}
	detail, err := decodeMovie(data)
	if err != nil {
		c.rest.Logger().Warn("malformed movie detail", "tmdb_id", *tmdbID, "err", err)
		return nil
	}

	out := provider.Movie{
		Name:       strings.TrimSpace(detail.Title),
		AliasNames: movie.AliasNames,
		Year:       yearFromDate(detail.ReleaseDate),
		ImdbID:     provider.ParseImdbID(detail.ImdbID),
		TmdbID:     provider.Ptr(*tmdbID),
		Language:   provider.Ptr(NormalizeLanguage(locale)),
	}
	if out.Name == "" {
		out.Name = movie.Name
	}
	if out.ImdbID == nil {
		out.ImdbID = movie.ImdbID
	}
	if detail.ID > 0 {
		out.TmdbID = provider.Ptr(detail.ID)
	}
	return &out
}

var artworkCategories = []string{"posters", "backdrops", "logos"}

// GetArtwork lists movie images. An empty category returns every kind.
func (c *Client) GetArtwork(ctx context.Context, mediaID int, category, locale string) []provider.Artwork {
	lang, _, _ := strings.Cut(NormalizeLanguage(locale), "-")
	data := c.requestJSON(ctx, fmt.Sprintf("movie/%d/images", mediaID),
		url.Values{"include_image_language": {lang + ",null"}}, locale)

	categories := artworkCategories
	if category != "" {
		categories = []string{category}
	}

	var out []provider.Artwork
	for _, cat := range categories {
		for _, img := range provider.AsMaps(data[cat]) {
			path, _ := provider.AsString(img["file_path"])
			if path == "" {
				continue
			}
			out = append(out, provider.Artwork{
				Category: cat,
				URL:      imageBaseURL + path,
				Language: provider.NonEmptyString(img["iso_639_1"]),
				Rating:   provider.AsFloat(img["vote_average"]),
			})
		}
	}
	return out
}

// decodeMovie maps a movie detail payload onto the typed TMDb record.
func decodeMovie(data map[string]any) (*tmdb.Movie, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var movie tmdb.Movie
	if err := json.Unmarshal(raw, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// yearFromDate reads the year of a "YYYY-MM-DD" date.
func yearFromDate(v any) *int {
	date, _ := v.(string)
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &year
}
