// Package registry assembles the provider clients a configuration enables.
package registry

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	csmap "github.com/mhmtszr/concurrent-swiss-map"

	"github.com/Digital-Shane/mediatag/internal/config"
	"github.com/Digital-Shane/mediatag/internal/provider"
	"github.com/Digital-Shane/mediatag/internal/provider/acoustid"
	"github.com/Digital-Shane/mediatag/internal/provider/anidb"
	"github.com/Digital-Shane/mediatag/internal/provider/fanarttv"
	"github.com/Digital-Shane/mediatag/internal/provider/omdb"
	"github.com/Digital-Shane/mediatag/internal/provider/opensubtitles"
	"github.com/Digital-Shane/mediatag/internal/provider/tmdb"
	"github.com/Digital-Shane/mediatag/internal/provider/tvdb"
	"github.com/Digital-Shane/mediatag/internal/provider/tvmaze"
)

// Registry holds the configured providers grouped by capability. It is
// immutable after New.
type Registry struct {
	movies    []provider.MovieIdentifier
	episodes  []provider.EpisodeListProvider
	artwork   []provider.ArtworkProvider
	music     []provider.MusicIdentifier
	subtitles []provider.SubtitleProvider

	// byID indexes the movie and episode providers by lowercased identifier.
	byID *csmap.CsMap[string, provider.Datasource]
}

type options struct {
	httpClient provider.HTTPDoer
	logger     *log.Logger
}

// Option configures the clients New builds.
type Option func(*options)

// WithHTTPClient shares one HTTP client between every provider.
func WithHTTPClient(c provider.HTTPDoer) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger every provider logs through.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New builds a client for every provider cfg has credentials for. TVmaze
// needs none and is always present. OpenSubtitles is only added when an
// application name is configured.
func New(cfg config.AppConfig, opts ...Option) *Registry {
	o := options{httpClient: http.DefaultClient, logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	rest := []provider.RestOption{
		provider.WithHTTPClient(o.httpClient),
		provider.WithLogger(o.logger),
	}

	r := &Registry{byID: csmap.Create[string, provider.Datasource]()}

	if cfg.TMDbAPIKey != "" {
		movies := tmdb.New(cfg.TMDbAPIKey, rest...)
		r.movies = append(r.movies, movies)
		r.episodes = append(r.episodes, tmdb.NewTV(cfg.TMDbAPIKey, rest...))
		r.artwork = append(r.artwork, movies)
	}
	if cfg.OMDbAPIKey != "" {
		r.movies = append(r.movies, omdb.New(cfg.OMDbAPIKey, rest...))
	}
	var tvdbClient *tvdb.Client
	if cfg.TVDbAPIKey != "" {
		tvdbClient = tvdb.New(cfg.TVDbAPIKey, rest...)
		r.episodes = append(r.episodes, tvdbClient)
	}
	if cfg.AniDBEnabled() {
		r.episodes = append(r.episodes, anidb.New(cfg.AniDBClient, cfg.AniDBClientVer, rest...))
	}
	r.episodes = append(r.episodes, tvmaze.New(rest...))

	if cfg.FanartTVAPIKey != "" {
		r.artwork = append(r.artwork, fanarttv.New(cfg.FanartTVAPIKey, rest...))
	}
	if tvdbClient != nil {
		r.artwork = append(r.artwork, tvdbClient)
	}
	if cfg.AcoustIDAPIKey != "" {
		r.music = append(r.music, acoustid.New(cfg.AcoustIDAPIKey, rest...))
	}
	if cfg.OpenSubtitlesAppName != "" {
		r.subtitles = append(r.subtitles, opensubtitles.New(cfg.OpenSubtitlesAppName, cfg.OpenSubtitlesAppVersion, rest...))
	}

	// movies first so a shared identifier resolves to the movie service
	for _, m := range r.movies {
		r.index(m)
	}
	for _, e := range r.episodes {
		r.index(e)
	}
	return r
}

func (r *Registry) index(ds provider.Datasource) {
	key := strings.ToLower(ds.Identifier())
	if _, exists := r.byID.Load(key); !exists {
		r.byID.Store(key, ds)
	}
}

// MovieIdentificationServices returns the movie identifiers.
func (r *Registry) MovieIdentificationServices() []provider.MovieIdentifier {
	return append([]provider.MovieIdentifier(nil), r.movies...)
}

// EpisodeListProviders returns the episode list providers.
func (r *Registry) EpisodeListProviders() []provider.EpisodeListProvider {
	return append([]provider.EpisodeListProvider(nil), r.episodes...)
}

// ArtworkProviders returns the artwork providers.
func (r *Registry) ArtworkProviders() []provider.ArtworkProvider {
	return append([]provider.ArtworkProvider(nil), r.artwork...)
}

// MusicIdentificationServices returns the music identifiers.
func (r *Registry) MusicIdentificationServices() []provider.MusicIdentifier {
	return append([]provider.MusicIdentifier(nil), r.music...)
}

// SubtitleProviders returns the subtitle providers.
func (r *Registry) SubtitleProviders() []provider.SubtitleProvider {
	return append([]provider.SubtitleProvider(nil), r.subtitles...)
}

// ServiceByIdentifier finds a movie or episode provider by identifier,
// ignoring case. Artwork, music and subtitle providers are not searched.
func (r *Registry) ServiceByIdentifier(id string) provider.Datasource {
	ds, ok := r.byID.Load(strings.ToLower(id))
	if !ok {
		return nil
	}
	return ds
}
