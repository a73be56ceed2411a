package tvmaze

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

func jsonResponse(status int, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

func newClient(bodies map[string]string, seen *[]string) *Client {
	return New(
		provider.WithHTTPClient(newTestClient(func(req *http.Request) (*http.Response, error) {
			if seen != nil {
				*seen = append(*seen, req.URL.String())
			}
			if body, ok := bodies[req.URL.Path]; ok {
				return jsonResponse(http.StatusOK, body), nil
			}
			return jsonResponse(http.StatusNotFound, `{}`), nil
		})),
		provider.WithLogger(log.New(io.Discard)),
	)
}

func TestIdentifierAndLink(t *testing.T) {
	c := New()
	assert.Equal(t, "TVmaze", c.Identifier())
	assert.True(t, c.HasSeasonSupport())
	assert.Equal(t, "http://www.tvmaze.com/shows/9", c.GetEpisodeListLink(provider.SearchResult{ID: 9, Name: provider.Ptr("S")}))
}

func TestSearch(t *testing.T) {
	var seen []string
	c := newClient(map[string]string{
		"/search/shows": `[
			{"show":{"id":3,"name":"  A  "}},
			{"show":{"id":"x"}},
			{"notshow":{"id":4}},
			1
		]`,
	}, &seen)

	res := c.Search(context.Background(), "Name", "")
	require.Len(t, res, 1)
	assert.Equal(t, 3, res[0].ID)
	assert.Equal(t, "A", *res[0].Name)
	assert.Equal(t, []string{"http://api.tvmaze.com/search/shows?q=Name"}, seen)
}

func TestSeriesInfoAndEpisodes(t *testing.T) {
	c := newClient(map[string]string{
		"/shows/3": `{"id":3,"name":"  A  ","status":"Running","runtime":30,"genres":["Comedy"],"network":{"name":"NBC"}}`,
		"/shows/3/episodes": `[
			{"id":1,"season":1,"number":1,"name":"Pilot","airdate":"2020-01-01"},
			{"id":"bad","season":"2","number":"x","name":5,"airdate":null},
			{"id":2,"season":"2","number":"10","name":"E","airdate":""},
			"bad"
		]`,
	}, nil)

	info, err := c.GetSeriesInfo(context.Background(), provider.SeriesByID(3), "")
	require.NoError(t, err)
	assert.Equal(t, 3, info.ID)
	assert.Equal(t, "A", *info.Name)
	assert.Equal(t, "Running", *info.Status)
	assert.Equal(t, 30, *info.Runtime)
	assert.Equal(t, []string{"Comedy"}, info.Genres)
	assert.Equal(t, "NBC", *info.Network)

	eps, err := c.GetEpisodeList(context.Background(), provider.SeriesByID(3), "ignored", "")
	require.NoError(t, err)
	require.Len(t, eps, 3)

	assert.Equal(t, 1, *eps[0].ID)
	assert.Nil(t, eps[1].ID)
	assert.Equal(t, 2, *eps[2].ID)

	assert.Equal(t, 1, *eps[0].Season)
	assert.Equal(t, 2, *eps[1].Season)
	assert.Equal(t, 2, *eps[2].Season)

	assert.Equal(t, 1, *eps[0].Episode)
	assert.Nil(t, eps[1].Episode)
	assert.Equal(t, 10, *eps[2].Episode)

	assert.Equal(t, "Pilot", *eps[0].Title)
	assert.Nil(t, eps[1].Title)
	assert.Equal(t, "E", *eps[2].Title)

	assert.Equal(t, "2020-01-01", *eps[0].Airdate)
	assert.Nil(t, eps[1].Airdate)
	assert.Nil(t, eps[2].Airdate)

	for _, ep := range eps {
		assert.Equal(t, "A", ep.SeriesName)
		assert.False(t, ep.IsSpecial())
	}
}

func TestOnlyTVmazeHostIsReached(t *testing.T) {
	var calls atomic.Int32
	c := New(provider.WithHTTPClient(newTestClient(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(http.StatusOK, `[]`), nil
	})), provider.WithLogger(log.New(io.Discard)))

	assert.Empty(t, c.Search(context.Background(), "x", ""))
	assert.Equal(t, int32(1), calls.Load())

	// the allow-list is what lets plain http through
	assert.True(t, provider.IsAllowedHTTP(baseURL+"shows/1", allowedHosts))
	assert.False(t, provider.IsAllowedHTTP("http://evil.example/shows/1", allowedHosts))
}
