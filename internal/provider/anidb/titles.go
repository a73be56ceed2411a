package anidb

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/patrickmn/go-cache"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

const (
	titlesURL     = "http://anidb.net/api/anime-titles.dat.gz"
	titlesTimeout = 30 * time.Second
	titlesKey     = "titles"
	loadAttempts  = 3
)

// Title types in display priority: main, official, synonym, short.
var typePriority = map[string]int{"1": 0, "4": 1, "2": 2, "3": 3}

// Title languages in display priority.
var languagePriority = map[string]int{"x-jat": 0, "en": 1, "ja": 2}

// TitleIndex holds the parsed AniDB titles dump. It is loaded on first use
// and kept until Invalidate or Reload is called.
type TitleIndex struct {
	rest       *provider.RestClient
	store      *cache.Cache
	mu         sync.Mutex
	retryDelay time.Duration
}

// NewTitleIndex creates an empty index fetching through rest.
func NewTitleIndex(rest *provider.RestClient) *TitleIndex {
	return &TitleIndex{
		rest:       rest,
		store:      cache.New(cache.NoExpiration, 0),
		retryDelay: time.Second,
	}
}

// Entries returns the index, loading it when it is not cached.
func (ix *TitleIndex) Entries(ctx context.Context) ([]provider.SearchResult, error) {
	if entries, ok := ix.cached(); ok {
		return entries, nil
	}
	return ix.Load(ctx)
}

// Load fetches the index unless another caller already has.
func (ix *TitleIndex) Load(ctx context.Context) ([]provider.SearchResult, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if entries, ok := ix.cached(); ok {
		return entries, nil
	}
	return ix.fetch(ctx)
}

// Reload fetches the index again and replaces the cached copy on success.
func (ix *TitleIndex) Reload(ctx context.Context) ([]provider.SearchResult, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.fetch(ctx)
}

// Invalidate drops the cached index. The next Entries call reloads it.
func (ix *TitleIndex) Invalidate() {
	ix.store.Delete(titlesKey)
}

// Loaded reports whether the index is cached.
func (ix *TitleIndex) Loaded() bool {
	_, ok := ix.cached()
	return ok
}

func (ix *TitleIndex) cached() ([]provider.SearchResult, bool) {
	v, ok := ix.store.Get(titlesKey)
	if !ok {
		return nil, false
	}
	entries, ok := v.([]provider.SearchResult)
	return entries, ok
}

func (ix *TitleIndex) fetch(ctx context.Context) ([]provider.SearchResult, error) {
	var raw []byte
	err := retry.Do(
		func() error {
			var err error
			raw, err = ix.rest.FetchBytes(ctx, titlesURL, provider.RequestOptions{
				Timeout:          titlesTimeout,
				SkipCache:        true,
				AllowedHTTPHosts: allowedHosts,
			})
			return err
		},
		retry.Context(ctx),
		retry.Attempts(loadAttempts),
		retry.Delay(ix.retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch anime titles: %w", err)
	}

	entries, err := ParseTitles(raw)
	if err != nil {
		return nil, err
	}
	ix.store.Set(titlesKey, entries, cache.NoExpiration)
	ix.rest.Logger().Debug("anime titles loaded", "series", len(entries))
	return entries, nil
}

type titleEntry struct {
	typeRank int
	langRank int
	title    string
}

// ParseTitles parses the pipe separated "aid|type|lang|title" dump, gzip
// compressed or not. Each anime becomes one result named by its best title
// with the remaining titles as aliases, in order of first appearance.
func ParseTitles(raw []byte) ([]provider.SearchResult, error) {
	var r io.Reader = bytes.NewReader(raw)
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("open titles archive: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var order []int
	byAid := make(map[int][]titleEntry)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, "|", 4)
		if len(fields) != 4 {
			continue
		}
		aid, err := strconv.Atoi(fields[0])
		if err != nil || aid <= 0 {
			continue
		}
		typeRank, okType := typePriority[fields[1]]
		langRank, okLang := languagePriority[fields[2]]
		title := html.UnescapeString(fields[3])
		if !okType || !okLang || title == "" {
			continue
		}
		if fields[1] == "3" && !plausibleShortTitle(title) {
			continue
		}
		if _, seen := byAid[aid]; !seen {
			order = append(order, aid)
		}
		byAid[aid] = append(byAid[aid], titleEntry{typeRank, langRank, title})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read titles: %w", err)
	}

	results := make([]provider.SearchResult, 0, len(order))
	for _, aid := range order {
		entries := byAid[aid]
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].typeRank != entries[j].typeRank {
				return entries[i].typeRank < entries[j].typeRank
			}
			return entries[i].langRank < entries[j].langRank
		})
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.title)
		}
		results = append(results, provider.SearchResult{
			ID:         aid,
			Name:       provider.Ptr(names[0]),
			AliasNames: names[1:],
		})
	}
	return results, nil
}

// plausibleShortTitle drops short titles that are mostly noise: under five
// characters, not capitalized, or ending in a capital letter.
func plausibleShortTitle(title string) bool {
	if utf8.RuneCountInString(title) < 5 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(title)
	last, _ := utf8.DecodeLastRuneInString(title)
	return unicode.IsUpper(first) && !unicode.IsUpper(last)
}
