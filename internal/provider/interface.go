package provider

import (
	"context"
	"errors"
)

// Episode ordering labels understood by episode list providers.
const (
	OrderAirdate         = "Airdate"
	OrderDVD             = "DVD"
	OrderAbsolute        = "Absolute"
	OrderAbsoluteAirdate = "AbsoluteAirdate"
)

// Datasource is the base contract every provider implements.
type Datasource interface {
	// Identifier is the stable, registry-wide provider key.
	Identifier() string
	// Name is the display name. Defaults to the identifier.
	Name() string
	// Icon returns encoded icon bytes, or nil when the provider has none.
	Icon() []byte
}

// MovieIdentifier resolves free-text queries and partial records into movies.
type MovieIdentifier interface {
	Datasource
	SearchMovie(ctx context.Context, query, locale string) []Movie
	// GetMovieDescriptor resolves a partially filled movie into the
	// provider's canonical record. Returns nil when it cannot be resolved.
	GetMovieDescriptor(ctx context.Context, movie Movie, locale string) *Movie
}

// EpisodeListProvider enumerates series and their episodes.
//
// Transport and parse failures degrade to empty results. The error returns
// carry protocol-level failures only (bad credentials, API error nodes).
type EpisodeListProvider interface {
	Datasource
	HasSeasonSupport() bool
	Search(ctx context.Context, query, locale string) []SearchResult
	GetEpisodeList(ctx context.Context, series SearchResult, order, locale string) ([]Episode, error)
	GetSeriesInfo(ctx context.Context, series SearchResult, locale string) (SeriesInfo, error)
	GetEpisodeListLink(series SearchResult) string
}

// ArtworkProvider lists artwork for a provider-scoped media id.
type ArtworkProvider interface {
	Datasource
	GetArtwork(ctx context.Context, mediaID int, category, locale string) []Artwork
}

// MusicIdentifier looks up audio fingerprints. The response is passed
// through untouched.
type MusicIdentifier interface {
	Datasource
	Lookup(ctx context.Context, durationSeconds int, fingerprint string) map[string]any
}

// SubtitleProvider searches a subtitle index by free-text query.
type SubtitleProvider interface {
	Datasource
	SearchSubtitles(ctx context.Context, query string) []SubtitleSearchResult
}

// BaseDatasource supplies the default Name and Icon behaviour. Providers
// embed it and set ID.
type BaseDatasource struct {
	ID string
}

// Identifier returns the provider identifier.
func (b BaseDatasource) Identifier() string {
	return b.ID
}

// Name returns the identifier.
func (b BaseDatasource) Name() string {
	return b.ID
}

// Icon returns nil.
func (b BaseDatasource) Icon() []byte {
	return nil
}

var (
	// ErrInvalidArgument reports a violated precondition.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrBlockedURL reports a request URL rejected by the scheme/host gate.
	ErrBlockedURL = errors.New("url blocked by scheme policy")
)

// Error codes carried by ProviderError.
const (
	CodeAuthFailed      = "AUTH_FAILED"
	CodeAPIError        = "API_ERROR"
	CodeInvalidResponse = "INVALID_RESPONSE"
)

// ProviderError represents an error from a provider
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	Retry      bool
	RetryAfter int // Seconds to wait before retry
}

func (e *ProviderError) Error() string {
	if e.Provider == "" {
		return e.Message
	}
	return e.Provider + ": " + e.Message
}
