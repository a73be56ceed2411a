// Package media derives search terms from media file names.
package media

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	ptn "github.com/razsteinmetz/go-ptn"
)

// Info is what a release file name says about its content. Zero values
// mean unknown.
type Info struct {
	Title   string
	Year    int
	Season  int
	Episode int
}

// IsEpisode reports whether the name carried an episode number.
func (i Info) IsEpisode() bool {
	return i.Episode > 0
}

// Parse reads title, year and episode numbering from the file name of path.
// The release name parser runs first; anything it leaves out is filled in
// from the folder conventions ExtractShowInfo and ParseSeasonEpisode know.
func Parse(path string) Info {
	var info Info
	if parsed, err := ptn.Parse(filepath.Base(path)); err == nil {
		info = Info{
			Title:   strings.TrimSpace(parsed.Title),
			Year:    parsed.Year,
			Season:  parsed.Season,
			Episode: parsed.Episode,
		}
	}

	if info.Season == 0 || info.Episode == 0 {
		if season, episode, ok := ParseSeasonEpisode(path); ok && episode > 0 {
			info.Season, info.Episode = season, episode
		}
	}
	if info.Title == "" {
		name, year := ExtractShowInfo(path, true)
		if name == "" {
			name = strings.Join(strings.Fields(strings.NewReplacer(".", " ", "_", " ").Replace(stem(path))), " ")
		}
		info.Title = name
		if info.Year == 0 {
			info.Year, _ = strconv.Atoi(year)
		}
	}
	return info
}

// QueryTag builds a free-text search query for the file: the title followed
// by "sXXeYY" for episodes or the year for movies.
func QueryTag(filename string) string {
	info := Parse(filename)
	parts := []string{info.Title}
	switch {
	case info.IsEpisode():
		parts = append(parts, fmt.Sprintf("s%02de%02d", info.Season, info.Episode))
	case info.Year > 0:
		parts = append(parts, strconv.Itoa(info.Year))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
