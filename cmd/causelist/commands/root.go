package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/causelist/config"
)

var (
	cfg     *config.Config
	profile config.Profile

	profilePath string
	downloads   string
	engine      string
	headless    bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "causelist",
	Short:         "causelist retrieves daily court cause lists from the district court portal.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		flags := cmd.Flags()
		if flags.Changed("profile") {
			cfg.Portal.ProfilePath = profilePath
		}
		if flags.Changed("downloads") {
			cfg.Output.Root = downloads
		}
		if flags.Changed("browser") {
			cfg.Browser.Engine = engine
		}
		if flags.Changed("headless") {
			cfg.Browser.Headless = headless
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		initLogger(cfg.Log)

		var err error
		profile, err = config.LoadProfile(cfg.Portal.ProfilePath)
		if err != nil {
			return fmt.Errorf("load portal profile: %w", err)
		}
		slog.Debug("portal profile loaded", "url", profile.BaseURL, "complex", profile.ComplexLabel)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&profilePath, "profile", "portal.json5", "portal profile (json5); a .local sibling overrides it")
	pf.StringVar(&downloads, "downloads", "downloads", "directory for documents, records and captcha images")
	pf.StringVar(&engine, "browser", "system", `browser engine: "system", "managed" or "remote"`)
	pf.BoolVar(&headless, "headless", false, "run the browser without a window")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// ExecuteContext runs the CLI and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
