package tmdb

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
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

// routes serves canned bodies keyed by URL path and records every request.
type routes struct {
	mu     sync.Mutex
	bodies map[string]string
	seen   []*http.Request
}

func (r *routes) client() provider.RestOption {
	return provider.WithHTTPClient(newTestClient(func(req *http.Request) (*http.Response, error) {
		r.mu.Lock()
		r.seen = append(r.seen, req)
		r.mu.Unlock()
		if body, ok := r.bodies[req.URL.Path]; ok {
			return jsonResponse(http.StatusOK, body), nil
		}
		return jsonResponse(http.StatusNotFound, `{"status_message":"not found"}`), nil
	}))
}

func (r *routes) requests() []*http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*http.Request(nil), r.seen...)
}

func quietLogger() provider.RestOption {
	return provider.WithLogger(log.New(io.Discard))
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"":      "en-US",
		"en_US": "en-US",
		"iw":    "he-IL",
		"in_ID": "id-ID",
		"fr":    "fr",
		"pt-br": "pt-BR",
		"he_IL": "he-IL",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLanguage(in), "NormalizeLanguage(%q)", in)
	}
}

func TestSplitNameAndYear(t *testing.T) {
	tests := []struct {
		query    string
		wantName string
		wantYear *int
	}{
		{"Serenity 2005", "Serenity", provider.Ptr(2005)},
		{"Spirited Away (2001)", "Spirited Away", provider.Ptr(2001)},
		{"Movie 20x1", "Movie 20x1", nil},
		{"  Name (1999) ", "Name", provider.Ptr(1999)},
		{"Movie2005", "Movie2005", nil},
		{"2012", "2012", nil},
		{"Blade Runner 2049 1982", "Blade Runner 2049", provider.Ptr(1982)},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			name, year := SplitNameAndYear(tt.query)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantYear, year)
		})
	}
}

func TestSearchMovie(t *testing.T) {
	r := &routes{bodies: map[string]string{
		"/3/search/movie": `{"results":[
			{"id":10,"title":"A","release_date":"2001-01-01"},
			{"id":11,"original_title":"B"},
			{"id":"x","title":"bad"}
		]}`,
	}}
	c := New("key", r.client(), quietLogger())

	movies := c.SearchMovie(context.Background(), "Inception 2010", "")
	require.Len(t, movies, 2)
	assert.Equal(t, 10, *movies[0].TmdbID)
	assert.Equal(t, "A", movies[0].Name)
	assert.Equal(t, 2001, *movies[0].Year)
	assert.Equal(t, "en-US", *movies[0].Language)
	assert.Equal(t, 11, *movies[1].TmdbID)
	assert.Equal(t, "B", movies[1].Name)
	assert.Nil(t, movies[1].Year)

	reqs := r.requests()
	require.Len(t, reqs, 1)
	q := reqs[0].URL.Query()
	assert.Equal(t, "en-US", q.Get("language"))
	assert.Equal(t, "2010", q.Get("year"))
	assert.Equal(t, "Inception", q.Get("query"))
	assert.Equal(t, "key", q.Get("api_key"))

	// the search is cached
	c.SearchMovie(context.Background(), "Inception 2010", "")
	assert.Len(t, r.requests(), 1)
}

func TestGetMovieDescriptorByTmdbID(t *testing.T) {
	r := &routes{bodies: map[string]string{
		"/3/movie/42": `{"id":42,"title":"X","release_date":"1999-12-31","imdb_id":"tt0000123"}`,
	}}
	c := New("key", r.client(), quietLogger())

	got := c.GetMovieDescriptor(context.Background(), provider.Movie{Name: "x", TmdbID: provider.Ptr(42)}, "de_DE")
	require.NotNil(t, got)
	assert.Equal(t, "X", got.Name)
	assert.Equal(t, 1999, *got.Year)
	assert.Equal(t, 123, *got.ImdbID)
	assert.Equal(t, 42, *got.TmdbID)
	assert.Equal(t, "de-DE", *got.Language)
}

func TestGetMovieDescriptorByImdbID(t *testing.T) {
	r := &routes{bodies: map[string]string{
		"/3/find/tt0000123": `{"movie_results":[{"id":77}]}`,
		"/3/movie/77":       `{"title":"Z"}`,
	}}
	c := New("key", r.client(), quietLogger())

	got := c.GetMovieDescriptor(context.Background(), provider.Movie{ImdbID: provider.Ptr(123)}, "")
	require.NotNil(t, got)
	assert.Equal(t, "Z", got.Name)
	assert.Equal(t, 77, *got.TmdbID)
	assert.Equal(t, 123, *got.ImdbID)

	reqs := r.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "imdb_id", reqs[0].URL.Query().Get("external_source"))
}

func TestGetMovieDescriptorUnresolvable(t *testing.T) {
	r := &routes{bodies: map[string]string{
		"/3/find/tt0000001": `{"movie_results":[]}`,
	}}
	c := New("key", r.client(), quietLogger())

	assert.Nil(t, c.GetMovieDescriptor(context.Background(), provider.Movie{Name: "none"}, ""))
	assert.Empty(t, r.requests(), "no ids must not reach the network")

	assert.Nil(t, c.GetMovieDescriptor(context.Background(), provider.Movie{ImdbID: provider.Ptr(1)}, ""))
}

func TestMovieArtwork(t *testing.T) {
	r := &routes{bodies: map[string]string{
		"/3/movie/5/images": `{
			"posters":[{"file_path":"/p.jpg","iso_639_1":"en","vote_average":5.5},{"file_path":""}],
			"backdrops":[{"file_path":"/b.jpg","iso_639_1":null}]
		}`,
	}}
	c := New("key", r.client(), quietLogger())

	art := c.GetArtwork(context.Background(), 5, "", "en_GB")
	require.Len(t, art, 2)
	assert.Equal(t, "posters", art[0].Category)
	assert.Equal(t, imageBaseURL+"/p.jpg", art[0].URL)
	assert.Equal(t, "en", *art[0].Language)
	assert.Equal(t, 5.5, *art[0].Rating)
	assert.Equal(t, "backdrops", art[1].Category)
	assert.Nil(t, art[1].Language)
	assert.Equal(t, "en,null", r.requests()[0].URL.Query().Get("include_image_language"))

	posters := c.GetArtwork(context.Background(), 5, "posters", "en_GB")
	assert.Len(t, posters, 1)
}

func TestMovieSearchFailureIsEmpty(t *testing.T) {
	c := New("key", provider.WithHTTPClient(newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"status_message":"Invalid API key"}`), nil
	})), quietLogger())

	assert.Empty(t, c.SearchMovie(context.Background(), "Alien", ""))
}
