package media

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Release file names follow a handful of community conventions. These
// patterns pull season, episode and year tokens out of them and strip the
// encoding noise around the title.
var (
	// seasonRe matches canonical season tokens like "Season 01", "S01", "s1".
	seasonRe = regexp.MustCompile(`(?i)\b(?:s|season)\.? *(\d+)\b`)

	// seasonAltRe matches alternative season tokens with separators: _Season_01_, season-1.
	seasonAltRe = regexp.MustCompile(`(?i)(?:^|[\s\.\-_])(?:s|season)[\s\.\-_]+(\d+)`)

	// seasonEpisodeRe matches combined season/episode forms: S01E02, 1x02, s1e2.
	seasonEpisodeRe = regexp.MustCompile(`(?i)[sx]?(\d+)[ex](\d+)`)

	// dottedSeasonEpisodeRe matches compact dotted forms: 1.04, 01.4, 10.12.
	// The season is capped at two digits so a leading year like 2024.05 is
	// not taken for one.
	dottedSeasonEpisodeRe = regexp.MustCompile(`(?i)(?:^|[\s_\-\.])([0-9]{1,2})[\. _-]([0-9]{1,2})(?:[^0-9]|$)`)

	videoRe    = regexp.MustCompile(`(?i)\.(mp4|mkv|avi|mov|wmv|flv|webm|mpeg|mpg|m4v|3gp|vob|ts|mts|m2ts|rmvb|divx)$`)
	subtitleRe = regexp.MustCompile(`(?i)\.(srt|sub|idx|ass|ssa|smi|vtt|sbv|sami|usf|stl|dks|pjs|jss|psb|rt|scc|cap|sup|dfxp|ttml)$`)
	audioRe    = regexp.MustCompile(`(?i)\.(mp3|flac|m4a|aac|ogg|oga|opus|wav|wma|alac|aiff?|ape|wv)$`)

	// yearRangeRe extracts a year or year range; only the first year is kept.
	yearRangeRe = regexp.MustCompile(`(?:^|[^\d])((19|20)\d{2})(?:[\s\-–—]+(?:19|20)\d{2})?(?:[^\d]|$)`)

	// episodeNumberRe captures a loose episode number when SxxExx is not present.
	episodeNumberRe = regexp.MustCompile(`(?:^|[\s\.\-_]|[Ee])(\d+)(?:[\s\.\-_]|$)`)

	// encodingTagsRe removes codec/resolution/source tags to isolate the title.
	encodingTagsRe = regexp.MustCompile(`(?i)\b(?:HD|HDR|DV|x265|x264|H\.?264|H\.?265|HEVC|AVC|AAC|AC3|DD|DTS|FLAC|MP3|WEB-?DL|BluRay|BDRip|DVDRip|HDTV|720p|1080p|2160p|4K|UHD|SDR|10bit|8bit|PROPER|REPACK|iNTERNAL|LiMiTED|UNRATED|EXTENDED|DiRECTORS?\.?CUT|THEATRICAL|COMPLETE|SEASON|SERIES|MULTI|DUAL|DUBBED|SUBBED|SUB|RETAIL|WS|FS|NTSC|PAL|R[1-6]|UNCUT|UNCENSORED)\b`)

	// langPattern matches trailing language codes before a subtitle extension: .en, .eng, .en-US.
	langPattern = regexp.MustCompile(`(\.[a-zA-Z]{2,3}(?:[-_][a-zA-Z]{2,4})?)$`)

	// simpleNumberRe matches a standalone number that might represent a season.
	simpleNumberRe = regexp.MustCompile(`^(\d+)|[\s\.\-_](\d+)(?:[\s\.\-_]|$)`)

	// seasonEpisodePatterns find where season/episode info starts in a name.
	seasonEpisodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)[sx]?\d+[ex]\d+`),
		regexp.MustCompile(`(?i)\b(?:s|season)\.? *\d+\b`),
		regexp.MustCompile(`\b\d{1,2}[\. _-]\d{1,2}\b`),
	}
)

// IsVideo reports whether filename has a recognized video extension.
func IsVideo(filename string) bool {
	return videoRe.MatchString(filename)
}

// IsSubtitle reports whether filename has a recognized subtitle extension.
func IsSubtitle(filename string) bool {
	return subtitleRe.MatchString(filename)
}

// IsAudio reports whether filename has a recognized audio extension.
func IsAudio(filename string) bool {
	return audioRe.MatchString(filename)
}

// IsSample reports whether filename or folder name contains "sample".
func IsSample(name string) bool {
	return strings.Contains(strings.ToLower(name), "sample")
}

// Kind names the sort of media file at path: "sample", "video", "audio",
// "subtitle", or "" when the extension is not recognized. Samples are
// reported as such whatever their extension.
func Kind(path string) string {
	base := filepath.Base(path)
	switch {
	case IsSample(base):
		return "sample"
	case IsVideo(base):
		return "video"
	case IsAudio(base):
		return "audio"
	case IsSubtitle(base):
		return "subtitle"
	}
	return ""
}

// ExtractExtension returns the extension including the dot. Subtitle files
// keep their language code: "movie.en.srt" yields ".en.srt".
func ExtractExtension(filename string) string {
	if IsSubtitle(filename) {
		return extractSubtitleSuffix(filename)
	}
	return extractExtension(filename)
}

func extractSubtitleSuffix(filename string) string {
	loc := subtitleRe.FindStringIndex(filename)
	if loc == nil {
		return ""
	}
	return langPattern.FindString(filename[:loc[0]]) + filename[loc[0]:]
}

func extractExtension(filename string) string {
	if dot := strings.LastIndex(filename, "."); dot != -1 {
		return filename[dot:]
	}
	return ""
}

// stem strips the directory and extension from path.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, ExtractExtension(base))
}

// ExtractSeasonNumber extracts a season number from a folder or file name.
func ExtractSeasonNumber(input string) (int, bool) {
	return firstIntFromRegexps(input, seasonRe, seasonAltRe, simpleNumberRe)
}

// ParseSeasonEpisode extracts season and episode numbers from the file name
// of path. When the name only carries an episode number, the season comes
// from the parent folder ("Season 2/Episode 12.mkv").
func ParseSeasonEpisode(path string) (int, int, bool) {
	name := filepath.Base(path)
	// dotted first, it is otherwise ambiguous with the loose episode fallback
	if m := dottedSeasonEpisodeRe.FindStringSubmatch(name); len(m) >= 3 {
		season, err1 := strconv.Atoi(m[1])
		episode, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil && season > 0 && season <= 100 && episode > 0 && episode <= 300 {
			return season, episode, true
		}
	}
	if m := seasonEpisodeRe.FindStringSubmatch(name); len(m) >= 3 {
		season, err1 := strconv.Atoi(m[1])
		episode, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			return season, episode, true
		}
	}

	episode, ok := firstIntFromRegexps(name, episodeNumberRe)
	if !ok {
		return 0, 0, false
	}
	parent, ok := parentDir(path)
	if !ok {
		return 0, 0, false
	}
	season, ok := ExtractSeasonNumber(filepath.Base(parent))
	if !ok {
		return 0, 0, false
	}
	return season, episode, true
}

// FindSeasonEpisodeIndex returns where season/episode information starts in
// name, or -1.
func FindSeasonEpisodeIndex(name string) int {
	earliest := -1
	for _, pattern := range seasonEpisodePatterns {
		if loc := pattern.FindStringIndex(name); loc != nil && (earliest == -1 || loc[0] < earliest) {
			earliest = loc[0]
		}
	}
	return earliest
}

// ExtractNameAndYear cleans a release name and splits off its year.
func ExtractNameAndYear(name string) (string, string) {
	if name == "" {
		return "", ""
	}
	formatted, year := name, ""
	if m := yearRangeRe.FindStringSubmatch(formatted); len(m) > 1 {
		year = m[1]
		if i := strings.Index(formatted, year); i != -1 {
			formatted = strings.TrimRight(formatted[:i], " ([{-_.")
		}
	}

	formatted = strings.NewReplacer(".", " ", "-", " ", "_", " ").Replace(formatted)
	formatted = encodingTagsRe.ReplaceAllString(formatted, "")
	return strings.Join(strings.Fields(formatted), " "), year
}

// ExtractShowInfo finds the show name and year for a file or folder path.
// Names that carry no show title, like "S01E01.mkv" or "Season 01", defer
// to their parent folders.
func ExtractShowInfo(path string, isFile bool) (showName, year string) {
	working := filepath.Base(path)
	if isFile {
		working = stem(path)
	}

	idx := FindSeasonEpisodeIndex(working)
	if idx > 0 {
		if showName, year = ExtractNameAndYear(strings.TrimRight(working[:idx], ".-_ ")); showName != "" {
			return showName, year
		}
	}
	if idx == 0 {
		return fromParent(path)
	}

	if _, isSeason := ExtractSeasonNumber(working); isSeason {
		if i := seasonTokenIndex(working); i > 0 {
			if showName, year = ExtractNameAndYear(strings.TrimRight(working[:i], ".-_ ")); showName != "" {
				return showName, year
			}
		}
		return fromParent(path)
	}

	if showName, year = ExtractNameAndYear(working); showName != "" {
		return showName, year
	}

	// search up to three levels
	for depth, dir := 0, path; depth < 3; depth++ {
		parent, ok := parentDir(dir)
		if !ok {
			break
		}
		if showName, year = ExtractNameAndYear(filepath.Base(parent)); showName != "" {
			return showName, year
		}
		dir = parent
	}
	return "", ""
}

func fromParent(path string) (string, string) {
	if parent, ok := parentDir(path); ok {
		return ExtractShowInfo(parent, false)
	}
	return "", ""
}

// seasonTokenIndex returns where a "Season"/"S" token followed by a number
// starts, or -1.
func seasonTokenIndex(name string) int {
	loc := seasonAltRe.FindStringIndex(name)
	if loc == nil {
		loc = seasonRe.FindStringIndex(name)
		if loc == nil {
			return -1
		}
		return loc[0]
	}
	// seasonAltRe consumes the separator before the token
	if loc[0] < len(name) && strings.ContainsRune(" .-_", rune(name[loc[0]])) {
		return loc[0] + 1
	}
	return loc[0]
}

// parentDir returns the parent of path, or false at the top.
func parentDir(path string) (string, bool) {
	parent := filepath.Dir(filepath.Clean(path))
	if parent == "." || parent == string(filepath.Separator) || parent == filepath.Clean(path) {
		return "", false
	}
	return parent, true
}

func firstIntFromRegexps(input string, regexps ...*regexp.Regexp) (int, bool) {
	for _, re := range regexps {
		m := re.FindStringSubmatch(input)
		for i := 1; i < len(m); i++ {
			if m[i] == "" {
				continue
			}
			if n, err := strconv.Atoi(m[i]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
