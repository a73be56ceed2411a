// Package anidb implements an AniDB episode list client backed by the
// public titles dump and the HTTP API.
package anidb

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

const (
	// Identifier identifies the AniDB client.
	Identifier = "AniDB"

	apiURL         = "http://api.anidb.net:9001/httpapi"
	linkBase       = "http://anidb.net/a"
	requestTimeout = 30 * time.Second
	shortTTL       = 24 * time.Hour
	longTTL        = 7 * 24 * time.Hour
	cacheSize      = 2048
	// AniDB bans clients that send more than one request every two seconds
	rateRequests = 1
	rateWindow   = 2 * time.Second

	episodeNormal  = 1
	episodeSpecial = 2
)

var (
	_ provider.EpisodeListProvider = (*Client)(nil)

	allowedHosts = []string{"anidb.net", "api.anidb.net", "api.anidb.net:9001"}
	isoDate      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// Client is the AniDB episode list client.
type Client struct {
	provider.BaseDatasource
	client    string
	clientver int
	rest      *provider.RestClient
	titles    *TitleIndex
}

// New creates an AniDB client for the registered client name and version.
func New(client string, clientver int, opts ...provider.RestOption) *Client {
	all := append([]provider.RestOption{
		provider.WithShortCache(cacheSize, shortTTL),
		provider.WithLongCache(cacheSize, longTTL),
		provider.WithRateLimiter(provider.NewRateLimiter(rateRequests, rateWindow)),
	}, opts...)
	all = append(all, provider.WithLogFields("provider", Identifier))

	rest := provider.NewRestClient(all...)
	return &Client{
		BaseDatasource: provider.BaseDatasource{ID: Identifier},
		client:         client,
		clientver:      clientver,
		rest:           rest,
		titles:         NewTitleIndex(rest),
	}
}

// Titles exposes the titles index so callers can reload or invalidate it.
func (c *Client) Titles() *TitleIndex {
	return c.titles
}

// NormalizeLanguage reduces a locale to the bare language AniDB tags titles
// with. Empty defaults to en.
func NormalizeLanguage(locale string) string {
	code := strings.TrimSpace(locale)
	if i := strings.IndexAny(code, "._-"); i >= 0 {
		code = code[:i]
	}
	code = strings.ToLower(code)
	switch code {
	case "":
		return "en"
	case "iw":
		return "he"
	case "in":
		return "id"
	}
	return code
}

// HasSeasonSupport reports false, AniDB numbers episodes absolutely.
func (c *Client) HasSeasonSupport() bool { return false }

// GetEpisodeListLink returns the public anime page.
func (c *Client) GetEpisodeListLink(series provider.SearchResult) string {
	return linkBase + strconv.Itoa(series.ID)
}

// Search matches query against the local titles index. Only the first call
// reaches the network.
func (c *Client) Search(ctx context.Context, query, locale string) []provider.SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	entries, err := c.titles.Entries(ctx)
	if err != nil {
		c.rest.Logger().Warn("titles index unavailable", "err", err)
		return nil
	}

	var matches []provider.SearchResult
	for _, entry := range entries {
		for _, name := range entry.EffectiveNames() {
			if strings.Contains(strings.ToLower(name), q) {
				matches = append(matches, entry)
				break
			}
		}
	}
	return matches
}

// GetSeriesInfo reads the main title and official titles of an anime.
func (c *Client) GetSeriesInfo(ctx context.Context, series provider.SearchResult, locale string) (provider.SeriesInfo, error) {
	doc, err := c.anime(ctx, series.ID)
	if err != nil {
		return provider.SeriesInfo{ID: series.ID}, err
	}

	titles := queryAll(doc, "/anime/titles/title")
	info := provider.SeriesInfo{ID: series.ID, Name: nonEmpty(pickTitle(titles, "main", ""))}
	for _, node := range titles {
		if attr(node, "type") != "official" {
			continue
		}
		if title := strings.TrimSpace(node.InnerText()); title != "" && (info.Name == nil || title != *info.Name) {
			info.AliasNames = append(info.AliasNames, title)
		}
	}
	return info, nil
}

// GetEpisodeList fetches the anime record and lists its normal episodes by
// number followed by its specials.
func (c *Client) GetEpisodeList(ctx context.Context, series provider.SearchResult, order, locale string) ([]provider.Episode, error) {
	doc, err := c.anime(ctx, series.ID)
	if err != nil {
		return nil, err
	}

	lang := NormalizeLanguage(locale)
	titles := queryAll(doc, "/anime/titles/title")
	name := pickTitle(titles, "main", "")
	if official := pickTitle(titles, "official", lang); official != "" {
		name = official
	}
	info := &provider.SeriesInfo{ID: series.ID, Name: nonEmpty(name)}
	if order != "" {
		info.Order = provider.Ptr(order)
	}

	var episodes []provider.Episode
	for _, node := range queryAll(doc, "/anime/episodes/episode") {
		ep, ok := episodeFromNode(node, lang, order)
		if !ok {
			continue
		}
		ep.SeriesName = name
		ep.SeriesInfo = info
		episodes = append(episodes, ep)
	}

	sort.SliceStable(episodes, func(i, j int) bool {
		a, b := episodes[i], episodes[j]
		if a.IsSpecial() != b.IsSpecial() {
			return !a.IsSpecial()
		}
		if a.IsSpecial() {
			return *a.SpecialNumber < *b.SpecialNumber
		}
		return *a.Episode < *b.Episode
	})
	return episodes, nil
}

func episodeFromNode(node *xmlquery.Node, lang, order string) (provider.Episode, bool) {
	epno := xmlquery.FindOne(node, "epno")
	if epno == nil {
		return provider.Episode{}, false
	}
	number, err := strconv.Atoi(nonDigits.ReplaceAllString(epno.InnerText(), ""))
	if err != nil {
		return provider.Episode{}, false
	}
	kind, _ := strconv.Atoi(epno.SelectAttr("type"))
	if kind != episodeNormal && kind != episodeSpecial {
		return provider.Episode{}, false
	}

	titles := queryAll(node, "title")
	title := pickTitle(titles, "", lang)
	if title == "" {
		title = pickTitle(titles, "", "en")
	}
	ep := provider.Episode{
		Title:   nonEmpty(title),
		Airdate: nonEmpty(selectText(node, "airdate")),
	}
	if id, err := strconv.Atoi(node.SelectAttr("id")); err == nil {
		ep.ID = provider.Ptr(id)
	}

	if kind == episodeSpecial {
		ep.SpecialNumber = provider.Ptr(number)
		return ep, true
	}
	ep.Episode = provider.Ptr(number)
	ep.Absolute = provider.Ptr(number)
	if order == provider.OrderAbsoluteAirdate && ep.Airdate != nil {
		if m := isoDate.FindStringSubmatch(*ep.Airdate); m != nil {
			y, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			d, _ := strconv.Atoi(m[3])
			ep.Absolute = provider.Ptr(y*10000 + mo*100 + d)
		}
	}
	return ep, true
}

// anime fetches and parses the anime record. Fetch failures, parse failures
// and AniDB <error> replies are all ProviderErrors.
func (c *Client) anime(ctx context.Context, aid int) (*xmlquery.Node, error) {
	q := url.Values{
		"request":   {"anime"},
		"client":    {c.client},
		"clientver": {strconv.Itoa(c.clientver)},
		"protover":  {"1"},
		"aid":       {strconv.Itoa(aid)},
	}
	rawURL := apiURL + "?" + q.Encode()
	opts := provider.RequestOptions{
		Timeout:          requestTimeout,
		UseLongCache:     true,
		AllowedHTTPHosts: allowedHosts,
	}
	raw, err := c.rest.FetchBytes(ctx, rawURL, opts)
	if err != nil {
		return nil, &provider.ProviderError{
			Provider: Identifier,
			Code:     provider.CodeAPIError,
			Message:  fmt.Sprintf("request failed: %v", err),
			Retry:    true,
		}
	}

	doc, err := xmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		c.rest.Forget(rawURL, opts)
		return nil, &provider.ProviderError{
			Provider: Identifier,
			Code:     provider.CodeInvalidResponse,
			Message:  fmt.Sprintf("parse anime %d: %v", aid, err),
		}
	}
	if msg := selectText(doc, "/error"); msg != "" {
		// error replies must not be served from the cache later
		c.rest.Forget(rawURL, opts)
		return nil, &provider.ProviderError{
			Provider: Identifier,
			Code:     provider.CodeAPIError,
			Message:  msg,
		}
	}
	return doc, nil
}

// selectText returns the trimmed text of the first node matching expr.
func selectText(top *xmlquery.Node, expr string) string {
	node, err := xmlquery.Query(top, expr)
	if err != nil || node == nil {
		return ""
	}
	return strings.TrimSpace(node.InnerText())
}

func queryAll(top *xmlquery.Node, expr string) []*xmlquery.Node {
	nodes, err := xmlquery.QueryAll(top, expr)
	if err != nil {
		return nil
	}
	return nodes
}

// pickTitle returns the first title node matching kind and lang. Empty
// filters match anything.
func pickTitle(nodes []*xmlquery.Node, kind, lang string) string {
	for _, node := range nodes {
		if kind != "" && attr(node, "type") != kind {
			continue
		}
		if lang != "" && attr(node, "lang") != lang {
			continue
		}
		if title := strings.TrimSpace(node.InnerText()); title != "" {
			return title
		}
	}
	return ""
}

// attr reads an attribute by local name, so xml:lang matches "lang".
func attr(node *xmlquery.Node, local string) string {
	for _, a := range node.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
