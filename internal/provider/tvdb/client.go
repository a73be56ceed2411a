// Package tvdb implements a TheTVDB v3 API client.
package tvdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

const (
	// Identifier identifies the TheTVDB client.
	Identifier = "TheTVDB"

	baseURL        = "https://api.thetvdb.com"
	bannerBaseURL  = "https://thetvdb.com/banners/"
	linkBase       = "https://www.thetvdb.com/?tab=seasonall&id="
	requestTimeout = 15 * time.Second
	shortTTL       = 24 * time.Hour
	longTTL        = 7 * 24 * time.Hour
	cacheSize      = 4096
	rateRequests   = 20
	rateWindow     = 10 * time.Second

	// tokens are valid for 24 hours; refresh an hour early
	tokenLifetime = 23 * time.Hour
	loginAttempts = 3
	// guards against a links.last that never ends
	maxPages = 500
)

var (
	_ provider.EpisodeListProvider = (*Client)(nil)
	_ provider.ArtworkProvider     = (*Client)(nil)

	isoDate = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// Client talks to TheTVDB with a bearer token obtained from /login.
type Client struct {
	provider.BaseDatasource
	apiKey string
	rest   *provider.RestClient

	mu      sync.Mutex
	token   string
	expires time.Time
	// now is swapped in tests; time.Now carries the monotonic reading the
	// expiry comparison relies on.
	now        func() time.Time
	retryDelay time.Duration
}

// New creates a TheTVDB client for apiKey.
func New(apiKey string, opts ...provider.RestOption) *Client {
	all := append([]provider.RestOption{
		provider.WithShortCache(cacheSize, shortTTL),
		provider.WithLongCache(cacheSize, longTTL),
		provider.WithRateLimiter(provider.NewRateLimiter(rateRequests, rateWindow)),
	}, opts...)
	all = append(all, provider.WithLogFields("provider", Identifier))

	return &Client{
		BaseDatasource: provider.BaseDatasource{ID: Identifier},
		apiKey:         apiKey,
		rest:           provider.NewRestClient(all...),
		now:            time.Now,
		retryDelay:     250 * time.Millisecond,
	}
}

// NormalizeLanguage maps a locale to the Accept-Language value TheTVDB
// understands. Empty defaults to en and the legacy codes iw and in become he
// and id.
func NormalizeLanguage(locale string) string {
	locale = strings.TrimSpace(strings.ReplaceAll(locale, "_", "-"))
	if locale == "" {
		return "en"
	}
	lang, region, _ := strings.Cut(locale, "-")
	switch strings.ToLower(lang) {
	case "iw", "he":
		return "he"
	case "in", "id":
		return "id"
	}
	if region == "" {
		return strings.ToLower(lang)
	}
	return strings.ToLower(lang) + "-" + strings.ToUpper(region)
}

// HasSeasonSupport reports true.
func (c *Client) HasSeasonSupport() bool { return true }

// GetEpisodeListLink returns the public all-seasons page.
func (c *Client) GetEpisodeListLink(series provider.SearchResult) string {
	return linkBase + strconv.Itoa(series.ID)
}

// Search finds series by name.
func (c *Client) Search(ctx context.Context, query, locale string) []provider.SearchResult {
	data, err := c.request(ctx, "search/series", url.Values{"name": {strings.TrimSpace(query)}}, locale)
	if err != nil {
		c.rest.Logger().Warn("search failed", "query", query, "err", err)
		return nil
	}

	var results []provider.SearchResult
	for _, item := range provider.AsMaps(data["data"]) {
		id := provider.AsInt(item["id"])
		if id == nil {
			continue
		}
		results = append(results, provider.SearchResult{
			ID:         *id,
			Name:       trimmedString(item["seriesName"]),
			AliasNames: stringList(item["aliases"]),
		})
	}
	return results
}

// GetSeriesInfo fetches the series record.
func (c *Client) GetSeriesInfo(ctx context.Context, series provider.SearchResult, locale string) (provider.SeriesInfo, error) {
	info := provider.SeriesInfo{ID: series.ID, Name: series.Name}
	data, err := c.request(ctx, fmt.Sprintf("series/%d", series.ID), nil, locale)
	if err != nil {
		return info, err
	}

	d := provider.AsMap(data["data"])
	if d == nil {
		return info, nil
	}
	if name := trimmedString(d["seriesName"]); name != nil {
		info.Name = name
	}
	info.AliasNames = stringList(d["aliases"])
	info.Status = provider.NonEmptyString(d["status"])
	info.Runtime = provider.AsInt(d["runtime"])
	info.Genres = stringList(d["genre"])
	info.Network = provider.NonEmptyString(d["network"])
	return info, nil
}

// GetEpisodeList pages through every episode of series and numbers them per
// order. Regular episodes are sorted by season and episode; anything that
// ends up in season 0 or below follows as a special.
func (c *Client) GetEpisodeList(ctx context.Context, series provider.SearchResult, order, locale string) ([]provider.Episode, error) {
	info, err := c.GetSeriesInfo(ctx, series, locale)
	if err != nil {
		return nil, err
	}
	if order != "" {
		info.Order = provider.Ptr(order)
	}
	seriesName := ""
	if info.Name != nil {
		seriesName = *info.Name
	}

	var regular, specials []provider.Episode
	path := fmt.Sprintf("series/%d/episodes", series.ID)
	for page := 1; page > 0 && page <= maxPages; {
		data, err := c.request(ctx, path, url.Values{"page": {strconv.Itoa(page)}}, locale)
		if err != nil {
			return nil, err
		}

		for _, item := range provider.AsMaps(data["data"]) {
			ep := c.episode(item, order)
			ep.SeriesName = seriesName
			ep.SeriesInfo = &info
			if ep.IsSpecial() {
				specials = append(specials, ep)
			} else {
				regular = append(regular, ep)
			}
		}

		page = nextPage(provider.AsMap(data["links"]), page)
	}

	sort.SliceStable(regular, func(i, j int) bool {
		a, b := provider.EpisodeNumbersKey(regular[i]), provider.EpisodeNumbersKey(regular[j])
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	return append(regular, specials...), nil
}

// episode derives the numbering of a single episode record.
func (c *Client) episode(item map[string]any, order string) provider.Episode {
	season := provider.AsInt(item["airedSeason"])
	number := provider.AsInt(item["airedEpisodeNumber"])
	absolute := provider.AsInt(item["absoluteNumber"])
	airdate := provider.NonEmptyString(item["firstAired"])

	switch order {
	case provider.OrderDVD:
		dvdSeason := provider.AsInt(item["dvdSeason"])
		dvdNumber := provider.AsInt(item["dvdEpisodeNumber"])
		if dvdSeason != nil && dvdNumber != nil {
			season, number = dvdSeason, dvdNumber
		}
	case provider.OrderAbsolute:
		if absolute != nil && *absolute > 0 {
			season, number = nil, provider.Ptr(*absolute)
		}
	case provider.OrderAbsoluteAirdate:
		if airdate != nil {
			if stamp := airdateNumber(*airdate); stamp != nil {
				season, number = nil, stamp
			}
		}
	}

	ep := provider.Episode{
		Title:    trimmedString(item["episodeName"]),
		Absolute: absolute,
		Airdate:  airdate,
		ID:       provider.AsInt(item["id"]),
	}
	if season != nil && *season <= 0 {
		ep.SpecialNumber = number
		return ep
	}
	ep.Season = season
	ep.Episode = number
	return ep
}

// request issues an authorized GET. Episode and search paths use the short
// cache.
func (c *Client) request(ctx context.Context, path string, params url.Values, locale string) (map[string]any, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	lang := NormalizeLanguage(locale)
	rawURL := baseURL + "/" + path
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	data := c.rest.GetJSON(ctx, rawURL, provider.RequestOptions{
		Headers: map[string]string{
			"Authorization":   "Bearer " + token,
			"Accept-Language": lang,
		},
		Timeout:      requestTimeout,
		CacheKey:     rawURL + "#" + lang,
		UseLongCache: !strings.Contains(path, "episodes") && !strings.HasPrefix(path, "search/"),
		RequireHTTPS: true,
	})
	return provider.AsMap(data), nil
}

// Token returns a valid bearer token, logging in when none is cached or the
// cached one has expired.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	var token string
	err := retry.Do(
		func() error {
			var err error
			token, err = c.login(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(loginAttempts),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var perr *provider.ProviderError
			return !errors.As(err, &perr)
		}),
	)
	if err != nil {
		var perr *provider.ProviderError
		if errors.As(err, &perr) {
			return "", perr
		}
		return "", &provider.ProviderError{
			Provider: Identifier,
			Code:     provider.CodeAuthFailed,
			Message:  fmt.Sprintf("login failed: %v", err),
			Retry:    true,
		}
	}

	c.token = token
	c.expires = c.now().Add(tokenLifetime)
	return token, nil
}

// Invalidate drops the cached token so the next request logs in again.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) login(ctx context.Context) (string, error) {
	resp, err := c.rest.PostJSON(ctx, baseURL+"/login", map[string]string{"apikey": c.apiKey}, provider.RequestOptions{
		Timeout:      requestTimeout,
		RequireHTTPS: true,
	})
	if err != nil {
		return "", err
	}
	token, _ := provider.AsString(provider.AsMap(resp)["token"])
	if token == "" {
		return "", &provider.ProviderError{
			Provider: Identifier,
			Code:     provider.CodeAuthFailed,
			Message:  "login response carried no token",
		}
	}
	return token, nil
}

// nextPage follows links.last, falling back to links.next. Zero ends paging.
func nextPage(links map[string]any, page int) int {
	if last := provider.AsInt(links["last"]); last != nil {
		if page < *last {
			return page + 1
		}
		return 0
	}
	if next := provider.AsInt(links["next"]); next != nil && *next > page {
		return *next
	}
	return 0
}

// airdateNumber turns "YYYY-MM-DD" into YYYYMMDD.
func airdateNumber(date string) *int {
	m := isoDate.FindStringSubmatch(date)
	if m == nil {
		return nil
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	return provider.Ptr(y*10000 + mo*100 + d)
}

func trimmedString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func stringList(v any) []string {
	var out []string
	for _, item := range provider.AsList(v) {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
