// Package cmd implements the scenic command-line interface.
//
// Running scenic without a subcommand starts the interactive road finder.
// The library subcommands read and edit saved roads without the TUI.
//
// Configuration comes from ~/.scenic/config.toml (or --config), SCENIC_*
// environment variables and flags, in increasing priority.
package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"scenic/internal/app"
	"scenic/internal/db"
	"scenic/internal/geo"
	"scenic/internal/library"
	"scenic/internal/model"
	"scenic/internal/search"
	"scenic/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type rootOptions struct {
	configFile string
	verbose    bool

	// Set in PersistentPreRunE.
	configDir string
	v         *viper.Viper
}

func (o *rootOptions) level() log.Level {
	if o.verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// Execute runs the scenic CLI.
func Execute(version string) error {
	return newRootCmd(version).ExecuteContext(context.Background())
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "scenic",
		Short:        "Find the best scenic driving roads near you",
		Long:         `scenic suggests great driving roads near your current location or a destination, and keeps the ones you like in a personal library.`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadDotEnv(".env")
			loadDotEnv(".env.local")

			dir, err := defaultConfigDir()
			if err != nil {
				return err
			}
			opts.configDir = dir
			opts.v = newViper(dir, opts.configFile)
			if err := bindFlags(opts.v, cmd.Flags(), cmd == cmd.Root()); err != nil {
				return err
			}

			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), opts.level())))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default ~/.scenic/config.toml)")
	pf.String("db", "", "path to SQLite database file (default ~/.scenic/scenic.db)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	f := root.Flags()
	f.String("api-key", "", "Gemini API key (or set GEMINI_API_KEY)")
	f.Float64("lat", 0, "fixed latitude to use as the current location")
	f.Float64("lon", 0, "fixed longitude to use as the current location")
	root.MarkFlagsRequiredTogether("lat", "lon")

	root.AddCommand(newLibraryCmd(opts))
	return root
}

// bindFlags lets flags override file and env values. Subcommands only share
// the persistent flags; their own --lat/--lon mean something else.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, root bool) error {
	bindings := map[string]string{"db": "database.path"}
	if root {
		bindings["api-key"] = "gemini.api_key"
		bindings["lat"] = "geo.lat"
		bindings["lon"] = "geo.lon"
	}
	for name, key := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	if root && flags.Changed("lat") {
		v.Set("geo.mode", GeoModeStatic)
	}
	return nil
}

func runApp(opts *rootOptions) error {
	cfg, err := loadConfig(opts.v, opts.configDir)
	if err != nil {
		return err
	}

	settings, err := loadOnboardingSettings(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to load onboarding settings: %w", err)
	}
	if shouldRunOnboarding(settings) {
		settings, err = runOnboarding(cfg.ConfigDir, cfg.Gemini.APIKey)
		if err != nil {
			return fmt.Errorf("failed to run onboarding: %w", err)
		}
	}
	if cfg.Gemini.APIKey == "" {
		key, err := loadSecureAPIKey(cfg.ConfigDir)
		if err != nil {
			return fmt.Errorf("failed to load stored API key: %w", err)
		}
		cfg.Gemini.APIKey = key
	}

	logger, closeLog, err := openFileLogger(cfg.Log.Path, opts.level())
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	client := search.NewGeminiClient(cfg.Gemini.APIKey,
		search.WithEndpoint(cfg.Gemini.Endpoint),
		search.WithModel(cfg.Gemini.Model),
		search.WithTimeout(cfg.Search.Timeout),
		search.WithLogger(logger),
	)

	orch := app.New(app.Config{
		Provider:      client,
		Keys:          client,
		Locator:       newLocator(cfg, settings),
		Library:       library.Open(db.NewKV(database), logger),
		Logger:        logger,
		SearchTimeout: cfg.Search.Timeout,
		LocateTimeout: cfg.Geo.Timeout,
		KeyReady:      client.HasAPIKey(),
	})

	logger.Info("Starting scenic", "db", cfg.Database.Path, "geo", cfg.Geo.Mode, "model", cfg.Gemini.Model)

	m := ui.New(orch, ui.Options{
		PrefsPath: filepath.Join(cfg.ConfigDir, "ui_prefs.json"),
		SaveKey: func(key string) error {
			return saveSecureAPIKey(cfg.ConfigDir, key)
		},
		Logger: logger,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}

// newLocator picks the position source. Explicit coordinates win over the
// onboarding choice; a declined lookup behaves like a denied permission.
func newLocator(cfg *Config, settings OnboardingSettings) app.Locator {
	switch {
	case cfg.Geo.Mode == GeoModeStatic:
		return geo.StaticLocator{Position: model.Position{Lat: cfg.Geo.Lat, Lon: cfg.Geo.Lon}}
	case cfg.Geo.Mode == GeoModeOff:
		return geo.DeniedLocator{}
	case settings.Completed && !settings.LocationEnabled:
		return geo.DeniedLocator{}
	default:
		return geo.NewIPLocator(cfg.Geo.Endpoint, cfg.Geo.Timeout)
	}
}
