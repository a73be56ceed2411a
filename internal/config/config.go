// Package config loads the provider credentials and CLI settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MEDIATAG_TMDB_API_KEY.
const EnvPrefix = "MEDIATAG"

// AppConfig holds the optional provider credentials. An empty key leaves
// its provider disabled.
type AppConfig struct {
	TMDbAPIKey              string `mapstructure:"tmdb_api_key" json:"tmdb_api_key"`
	OMDbAPIKey              string `mapstructure:"omdb_api_key" json:"omdb_api_key"`
	TVDbAPIKey              string `mapstructure:"tvdb_api_key" json:"tvdb_api_key"`
	AniDBClient             string `mapstructure:"anidb_client" json:"anidb_client"`
	AniDBClientVer          int    `mapstructure:"anidb_clientver" json:"anidb_clientver"`
	FanartTVAPIKey          string `mapstructure:"fanarttv_api_key" json:"fanarttv_api_key"`
	AcoustIDAPIKey          string `mapstructure:"acoustid_api_key" json:"acoustid_api_key"`
	OpenSubtitlesAppName    string `mapstructure:"opensubtitles_app_name" json:"opensubtitles_app_name"`
	OpenSubtitlesAppVersion string `mapstructure:"opensubtitles_app_version" json:"opensubtitles_app_version"`

	Locale   string `mapstructure:"locale" json:"locale"`
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

var defaults = map[string]any{
	"tmdb_api_key":              "",
	"omdb_api_key":              "",
	"tvdb_api_key":              "",
	"anidb_client":              "",
	"anidb_clientver":           0,
	"fanarttv_api_key":          "",
	"acoustid_api_key":          "",
	"opensubtitles_app_name":    "",
	"opensubtitles_app_version": "1.0",
	"locale":                    "en-US",
	"log_level":                 "info",
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		OpenSubtitlesAppVersion: "1.0",
		Locale:                  "en-US",
		LogLevel:                "info",
	}
}

// ConfigPath returns the path to the default config file.
func ConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".mediatag", "config.json"), nil
}

// Load reads defaults, then the config file, then MEDIATAG_ environment
// variables. An explicit path must exist; a missing default file is not an
// error. The format follows the file extension (json, yaml, toml).
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		defaultPath, err := ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(defaultPath); statErr == nil {
				path = defaultPath
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// AniDBEnabled reports whether both the AniDB client name and version are set.
func (c AppConfig) AniDBEnabled() bool {
	return c.AniDBClient != "" && c.AniDBClientVer > 0
}

// ProviderStatus pairs a provider identifier with whether the configuration
// turns it on.
type ProviderStatus struct {
	ID      string
	Enabled bool
}

// Providers reports every known provider in registry order.
func (c AppConfig) Providers() []ProviderStatus {
	var out []ProviderStatus
	add := func(on bool, ids ...string) {
		for _, id := range ids {
			out = append(out, ProviderStatus{ID: id, Enabled: on})
		}
	}
	add(c.TMDbAPIKey != "", "TheMovieDB", "TheMovieDB::TV")
	add(c.OMDbAPIKey != "", "OMDb")
	add(c.TVDbAPIKey != "", "TheTVDB")
	add(c.AniDBEnabled(), "AniDB")
	add(true, "TVmaze")
	add(c.FanartTVAPIKey != "", "FanartTV")
	add(c.AcoustIDAPIKey != "", "AcoustID")
	add(c.OpenSubtitlesAppName != "", "OpenSubtitles")
	return out
}

// Enabled lists the identifiers of the providers this configuration turns
// on. TVmaze needs no credentials and is always listed.
func (c AppConfig) Enabled() []string {
	var ids []string
	for _, p := range c.Providers() {
		if p.Enabled {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Masked returns a copy safe to print, with every credential reduced to its
// last four characters.
func (c AppConfig) Masked() AppConfig {
	for _, key := range []*string{&c.TMDbAPIKey, &c.OMDbAPIKey, &c.TVDbAPIKey, &c.FanartTVAPIKey, &c.AcoustIDAPIKey} {
		*key = mask(*key)
	}
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
