package provider

import (
	"cmp"
	"fmt"
	"slices"
)

// CreateEpisode returns the single episode as-is or groups several into a
// MultiEpisode.
func CreateEpisode(episodes []Episode) (EpisodeValue, error) {
	switch len(episodes) {
	case 0:
		return nil, fmt.Errorf("%w: no episodes provided", ErrInvalidArgument)
	case 1:
		return episodes[0], nil
	default:
		return MultiEpisode{Episodes: append([]Episode(nil), episodes...)}, nil
	}
}

// EpisodeNumbersKey returns (season, episode, special, absolute) with missing
// values as zero.
func EpisodeNumbersKey(e Episode) [4]int {
	return [4]int{deref(e.Season), deref(e.Episode), deref(e.SpecialNumber), deref(e.Absolute)}
}

// CompareEpisodeNumbers orders episodes by EpisodeNumbersKey.
func CompareEpisodeNumbers(a, b Episode) int {
	ka, kb := EpisodeNumbersKey(a), EpisodeNumbersKey(b)
	for i := range ka {
		if c := cmp.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
	}
	return 0
}

// SortEpisodes sorts episodes in place by EpisodeNumbersKey. Equal keys keep
// their relative order.
func SortEpisodes(episodes []Episode) {
	slices.SortStableFunc(episodes, CompareEpisodeNumbers)
}

// MatchByAbsolute finds the episodes in candidates that share the absolute
// numbers of every part of source. It returns nil unless each part has a
// distinct absolute number and exactly one regular candidate matches each.
func MatchByAbsolute(source EpisodeValue, candidates []Episode) EpisodeValue {
	if source == nil {
		return nil
	}
	parts := source.Parts()

	wanted := make(map[int]struct{}, len(parts))
	for _, part := range parts {
		if part.Absolute == nil {
			return nil
		}
		wanted[*part.Absolute] = struct{}{}
	}
	if len(wanted) == 0 || len(wanted) != len(parts) {
		return nil
	}

	var found []Episode
	for _, c := range candidates {
		if c.IsSpecial() || c.Absolute == nil {
			continue
		}
		if _, ok := wanted[*c.Absolute]; ok {
			found = append(found, c)
		}
	}
	if len(found) != len(parts) {
		return nil
	}

	SortEpisodes(found)
	match, err := CreateEpisode(found)
	if err != nil {
		return nil
	}
	return match
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
