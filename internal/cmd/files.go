package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/mediatag/internal/media"
	"github.com/Digital-Shane/mediatag/internal/provider"
)

// bestSubtitleSearcher is implemented by subtitle providers that can match
// a local video file directly.
type bestSubtitleSearcher interface {
	SearchBest(ctx context.Context, fs afero.Fs, path string) []provider.SubtitleSearchResult
}

func newSubtitlesCmd(a *app) *cobra.Command {
	var providerID string
	cmd := &cobra.Command{
		Use:   "subtitles <query|file>",
		Short: "Search subtitles by free text or for a video file",
		Long: `Search subtitles by free text or for a video file.

When the argument names an existing file, providers that support it match
the file by movie hash first and fall back to a query built from the file
name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := selectProviders(a.registry.SubtitleProviders(), providerID, "subtitle")
			if err != nil {
				return err
			}
			isFile, _ := afero.Exists(a.fs, args[0])
			if isFile && !media.IsVideo(args[0]) {
				return fmt.Errorf("%s is not a video file", args[0])
			}

			var rows [][]string
			for _, p := range providers {
				var results []provider.SubtitleSearchResult
				if best, ok := p.(bestSubtitleSearcher); ok && isFile {
					results = best.SearchBest(cmd.Context(), a.fs, args[0])
				} else {
					query := args[0]
					if isFile {
						query = media.QueryTag(args[0])
					}
					results = p.SearchSubtitles(cmd.Context(), query)
				}
				for _, r := range results {
					rows = append(rows, []string{p.Identifier(), r.Name, str(r.Lang), num(r.Score), imdb(r.ImdbID), str(r.URL)})
				}
			}
			a.printTable(cmd.OutOrStdout(), []string{"PROVIDER", "NAME", "LANGUAGE", "SCORE", "IMDB", "URL"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerID, "provider", "p", "", "only query this provider")
	return cmd
}

func newFingerprintCmd(a *app) *cobra.Command {
	var (
		fingerprint string
		duration    int
		providerID  string
		raw         bool
	)
	cmd := &cobra.Command{
		Use:   "fingerprint <file>",
		Short: "Identify an audio file by its Chromaprint fingerprint",
		Long: `Identify an audio file by its Chromaprint fingerprint.

The fingerprint is computed with fpcalc and passed in. The duration is read
from the file with ffprobe unless --duration is given.`,
		Example: `  mediatag fingerprint song.flac --fingerprint "$(fpcalc -plain song.flac)"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := selectProviders(a.registry.MusicIdentificationServices(), providerID, "music")
			if err != nil {
				return err
			}
			if !media.IsAudio(args[0]) {
				return fmt.Errorf("%s is not an audio file", args[0])
			}
			if strings.TrimSpace(fingerprint) == "" {
				return fmt.Errorf("--fingerprint is required")
			}
			if duration <= 0 {
				if duration, err = a.probe(cmd.Context(), args[0]); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			var rows [][]string
			for _, svc := range services {
				resp := svc.Lookup(cmd.Context(), duration, fingerprint)
				if raw {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(resp); err != nil {
						return err
					}
					continue
				}
				rows = append(rows, matchRows(svc.Identifier(), resp)...)
			}
			if !raw {
				a.printTable(out, []string{"PROVIDER", "SCORE", "RECORDING", "TITLE", "ARTISTS"}, rows)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&fingerprint, "fingerprint", "f", "", "Chromaprint fingerprint of the file")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "duration in seconds, probed when omitted")
	cmd.Flags().StringVarP(&providerID, "provider", "p", "", "only query this provider")
	cmd.Flags().BoolVar(&raw, "json", false, "print the raw provider responses")
	return cmd
}

// matchRows flattens an AcoustID style lookup response into one row per
// recording.
func matchRows(id string, resp map[string]any) [][]string {
	var rows [][]string
	for _, result := range provider.AsMaps(resp["results"]) {
		score := ""
		if s := provider.AsFloat(result["score"]); s != nil {
			score = strconv.FormatFloat(*s, 'f', 2, 64)
		}
		for _, rec := range provider.AsMaps(result["recordings"]) {
			recID, _ := provider.AsString(rec["id"])
			title, _ := provider.AsString(rec["title"])
			var artists []string
			for _, artist := range provider.AsMaps(rec["artists"]) {
				if name, ok := provider.AsString(artist["name"]); ok && name != "" {
					artists = append(artists, name)
				}
			}
			rows = append(rows, []string{id, score, recID, title, strings.Join(artists, ", ")})
		}
	}
	return rows
}

func newHashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file|dir>...",
		Short: "Compute the OpenSubtitles movie hash of video files",
		Long: `Compute the OpenSubtitles movie hash of video files.

Directories are searched for video files. Samples found there are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.mediaFiles(args, media.IsVideo, "a video")
			if err != nil {
				return err
			}
			var rows [][]string
			for _, path := range files {
				hash, size, err := provider.MovieHash(a.fs, path)
				if err != nil {
					return fmt.Errorf("failed to hash %s: %w", path, err)
				}
				rows = append(rows, []string{path, hash, strconv.FormatInt(size, 10)})
			}
			a.printTable(cmd.OutOrStdout(), []string{"FILE", "HASH", "SIZE"}, rows)
			return nil
		},
	}
}

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <path>...",
		Short: "Show the title, year and episode numbers read from file names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, path := range args {
				info := media.Parse(path)
				rows = append(rows, []string{path, media.Kind(path), info.Title, zeroBlank(info.Year), zeroBlank(info.Season), zeroBlank(info.Episode), media.QueryTag(path)})
			}
			a.printTable(cmd.OutOrStdout(), []string{"PATH", "KIND", "TITLE", "YEAR", "SEASON", "EPISODE", "QUERY"}, rows)
			return nil
		},
	}
}

// mediaFiles expands args into the files match accepts. A file named
// directly must match; directories are walked and samples inside them
// skipped.
func (a *app) mediaFiles(args []string, match func(string) bool, kind string) ([]string, error) {
	var files []string
	for _, arg := range args {
		isDir, err := afero.IsDir(a.fs, arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		if !isDir {
			if !match(arg) {
				return nil, fmt.Errorf("%s is not %s file", arg, kind)
			}
			files = append(files, arg)
			continue
		}
		err = afero.Walk(a.fs, arg, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !match(path) {
				return nil
			}
			if rel, _ := filepath.Rel(arg, path); media.IsSample(rel) {
				a.logger.Debug("skipping sample", "path", path)
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	return files, nil
}

func zeroBlank(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
