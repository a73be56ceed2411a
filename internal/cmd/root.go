package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/mediatag/internal/config"
	applog "github.com/Digital-Shane/mediatag/internal/log"
	"github.com/Digital-Shane/mediatag/internal/provider"
	"github.com/Digital-Shane/mediatag/internal/provider/acoustid"
	"github.com/Digital-Shane/mediatag/internal/provider/registry"
	"github.com/Digital-Shane/mediatag/internal/theme"
)

// app carries the state every subcommand shares. The root pre-run fills in
// cfg, logger and registry.
type app struct {
	configPath string
	logLevel   string
	locale     string
	noColor    bool

	fs         afero.Fs
	httpClient provider.HTTPDoer
	logOut     io.Writer
	theme      theme.Theme
	probe      func(ctx context.Context, path string) (int, error)

	cfg      *config.AppConfig
	logger   *log.Logger
	registry *registry.Registry
}

func newApp() *app {
	return &app{
		fs:     afero.NewOsFs(),
		logOut: os.Stderr,
		theme:  theme.Default(),
		probe:  acoustid.ProbeDuration,
	}
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mediatag",
		Short: "Look up media metadata from online providers",
		Long: `mediatag identifies movies, series, episodes, artwork, music and subtitles
through TheMovieDB, OMDb, TheTVDB, AniDB, TVmaze, FanartTV, AcoustID and
OpenSubtitles.

Providers are enabled by configuring their credentials in the config file
or through MEDIATAG_ environment variables. TVmaze needs none.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $HOME/.mediatag/config.json)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.locale, "locale", "", "result language, e.g. en-US (default from config)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output (also set by NO_COLOR)")

	root.AddCommand(
		newProvidersCmd(a),
		newMovieCmd(a),
		newSeriesCmd(a),
		newEpisodesCmd(a),
		newArtworkCmd(a),
		newSubtitlesCmd(a),
		newFingerprintCmd(a),
		newHashCmd(a),
		newParseCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads the configuration and builds the logger and registry.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	level := a.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	a.logger, err = applog.New(a.logOut, level)
	if err != nil {
		return err
	}

	if a.locale == "" {
		a.locale = cfg.Locale
	}
	if a.noColor || os.Getenv("NO_COLOR") != "" {
		a.theme = a.theme.Plain()
	}

	opts := []registry.Option{registry.WithLogger(a.logger)}
	if a.httpClient != nil {
		opts = append(opts, registry.WithHTTPClient(a.httpClient))
	}
	a.registry = registry.New(*cfg, opts...)
	a.logger.Debug("providers enabled", "ids", cfg.Enabled())
	return nil
}
