package provider

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// SearchResult is a provider-scoped series match.
type SearchResult struct {
	ID         int
	Name       *string
	AliasNames []string
}

// SeriesByID builds an id-only series reference.
func SeriesByID(id int) SearchResult {
	return SearchResult{ID: id}
}

// EffectiveNames returns the name followed by the aliases, or nothing when
// the result has no name.
func (r SearchResult) EffectiveNames() []string {
	return effectiveNames(r.Name, r.AliasNames)
}

// Movie is a movie record. Providers fill in what they know; a canonical
// record comes from MovieIdentifier.GetMovieDescriptor.
type Movie struct {
	Name       string
	AliasNames []string
	Year       *int
	ImdbID     *int // without the "tt" prefix
	TmdbID     *int
	Language   *string
}

// EffectiveNames returns the movie name followed by its aliases.
func (m Movie) EffectiveNames() []string {
	return effectiveNames(&m.Name, m.AliasNames)
}

// SeriesInfo describes a series as seen by one provider.
type SeriesInfo struct {
	ID         int
	Name       *string
	AliasNames []string
	Order      *string
	Status     *string
	Runtime    *int
	Genres     []string
	Network    *string
}

// Episode is a single episode. Regular episodes carry Season and Episode;
// specials carry SpecialNumber only.
type Episode struct {
	SeriesName    string
	Season        *int
	Episode       *int
	Title         *string
	Absolute      *int
	SpecialNumber *int
	Airdate       *string
	ID            *int
	SeriesInfo    *SeriesInfo
}

// IsSpecial reports whether the episode is numbered outside the regular
// season/episode scheme.
func (e Episode) IsSpecial() bool {
	return e.SpecialNumber != nil
}

// Parts returns the episode itself.
func (e Episode) Parts() []Episode {
	return []Episode{e}
}

// MultiEpisode groups two or more episodes that belong together, such as a
// double-length episode.
type MultiEpisode struct {
	Episodes []Episode
}

// Parts returns a copy of the grouped episodes.
func (m MultiEpisode) Parts() []Episode {
	return append([]Episode(nil), m.Episodes...)
}

// EpisodeValue is either an Episode or a MultiEpisode.
type EpisodeValue interface {
	Parts() []Episode
}

// Artwork is a single image reference.
type Artwork struct {
	Category string
	URL      string
	Language *string
	Rating   *float64
}

// SubtitleSearchResult is a single subtitle match.
type SubtitleSearchResult struct {
	Name   string
	Lang   *string
	ImdbID *int
	TmdbID *int
	Score  *int
	URL    *string
}

// Actor is a series cast credit.
type Actor struct {
	Name  *string
	Role  *string
	Order *int
	Image *string
}

// Person is an episode crew or guest credit.
type Person struct {
	Name string
	Role string
}

// EpisodeDetails holds the extra per-episode information some providers expose.
type EpisodeDetails struct {
	SeriesID *int
	Overview *string
	Rating   *float64
	Votes    *int
	People   []Person
}

func effectiveNames(name *string, aliases []string) []string {
	if name == nil || *name == "" {
		return []string{}
	}
	names := make([]string, 0, len(aliases)+1)
	names = append(names, *name)
	return append(names, aliases...)
}
