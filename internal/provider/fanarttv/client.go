// Package fanarttv implements the FanartTV artwork client.
package fanarttv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

const (
	// Identifier identifies the FanartTV client.
	Identifier = "FanartTV"

	baseURL        = "https://webservice.fanart.tv/v3/"
	requestTimeout = 15 * time.Second
	// artwork sets rarely change
	cacheTTL  = 7 * 24 * time.Hour
	cacheSize = 4096
)

var _ provider.ArtworkProvider = (*Client)(nil)

// Client is the FanartTV client.
type Client struct {
	provider.BaseDatasource
	apiKey string
	rest   *provider.RestClient
}

// New creates a FanartTV client for apiKey.
func New(apiKey string, opts ...provider.RestOption) *Client {
	all := append([]provider.RestOption{
		provider.WithLongCache(cacheSize, cacheTTL),
	}, opts...)
	all = append(all, provider.WithLogFields("provider", Identifier))
	return &Client{
		BaseDatasource: provider.BaseDatasource{ID: Identifier},
		apiKey:         apiKey,
		rest:           provider.NewRestClient(all...),
	}
}

// GetArtwork lists every image FanartTV has for mediaID under category
// ("movies", "tv", "music", ...). Each list-valued key of the response is an
// artwork kind; its items become Artwork whose category is the kind, plus
// season and disc type when present. Locale is ignored.
func (c *Client) GetArtwork(ctx context.Context, mediaID int, category, locale string) []provider.Artwork {
	rawURL := fmt.Sprintf("%s%s/%d?api_key=%s", baseURL, category, mediaID, c.apiKey)
	raw := c.rest.GetBytes(ctx, rawURL, provider.RequestOptions{
		Timeout:      requestTimeout,
		UseLongCache: true,
		RequireHTTPS: true,
	})
	kinds, err := decodeKinds(raw)
	if err != nil {
		if raw != nil {
			c.rest.Logger().Debug("unusable artwork response", "media_id", mediaID, "err", err)
		}
		return nil
	}

	var artwork []provider.Artwork
	for _, k := range kinds {
		items, ok := k.value.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			fields, ok := item.(map[string]any)
			if !ok {
				continue
			}
			url, _ := provider.AsString(fields["url"])
			if url == "" {
				continue
			}
			artwork = append(artwork, provider.Artwork{
				Category: joinNonEmpty(k.name, label(fields["season"]), label(fields["disc_type"])),
				URL:      url,
				Language: provider.NonEmptyString(fields["lang"]),
				Rating:   provider.AsFloat(fields["likes"]),
			})
		}
	}
	return artwork
}

type kind struct {
	name  string
	value any
}

// decodeKinds reads the top level of a JSON object keeping the order its
// keys appear in.
func decodeKinds(raw []byte) ([]kind, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("expected an object, got %v", tok)
	}
	var kinds []kind
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := tok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		kinds = append(kinds, kind{name: name, value: value})
	}
	return kinds, nil
}

// label renders a string or numeric field, or "" for anything else.
func label(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ",")
}
