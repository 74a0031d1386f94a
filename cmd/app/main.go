package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/build"
	"github.com/starford/ansuz/internal/manifest"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/validate"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

// loadConfig reads the config file when it exists and falls back to defaults
// otherwise, so `ansuz build -i content -o public` works without any config.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	err := pkgconfig.Load(cmd.String("config"), cfg)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// applyBuildFlags overlays command-line flags onto the loaded configuration.
func applyBuildFlags(cmd *cli.Command, cfg *internal.Config) {
	if cmd.IsSet("input") {
		cfg.Content.Path = cmd.String("input")
	}
	if cmd.IsSet("output") {
		cfg.Build.OutputPath = cmd.String("output")
	}
	if cmd.IsSet("strict") {
		cfg.Build.Strict = cmd.Bool("strict")
	}
	if cmd.IsSet("drafts") {
		cfg.Build.Drafts = cmd.Bool("drafts")
	}
	if cmd.IsSet("workers") {
		cfg.Build.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("base-url") {
		cfg.Content.BaseURL = cmd.String("base-url")
	}
}

func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Content directory to build from",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Directory to write the rendered site to",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Treat validation violations and duplicate URLs as fatal",
		},
		&cli.BoolFlag{
			Name:  "drafts",
			Usage: "Include draft articles",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Ignore the build manifest and rebuild everything",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Parallel worker count (0 = NumCPU)",
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "Absolute site prefix for the sitemap (e.g. https://example.com)",
		},
	}
}

// runPipeline assembles and runs one build. dryRun validates and renders
// without writing anything.
func runPipeline(ctx context.Context, cmd *cli.Command, dryRun bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyBuildFlags(cmd, cfg)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	source, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return fmt.Errorf("open content dir: %w", err)
	}

	opts := []build.Option{
		build.WithStrict(cfg.Build.Strict),
		build.WithDrafts(cfg.Build.Drafts),
		build.WithForce(cmd.Bool("force")),
		build.WithWorkers(cfg.Build.Workers),
		build.WithMaxDescription(cfg.Content.MaxDescription),
		build.WithBaseURL(cfg.Content.BaseURL),
	}

	var output storage.Provider
	if dryRun {
		opts = append(opts, build.WithDryRun(true))
		output = source
	} else {
		if err := os.MkdirAll(cfg.Build.OutputPath, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		output, err = storage.NewFS(cfg.Build.OutputPath)
		if err != nil {
			return fmt.Errorf("open output dir: %w", err)
		}

		db, err := manifest.Open(cfg.Manifest.Path)
		if err != nil {
			return fmt.Errorf("open manifest: %w", err)
		}
		defer db.Close()
		opts = append(opts, build.WithManifest(db))
	}

	report, err := build.New(source, output, logger, opts...).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Print(report.Summary())
	if report.Fatal() {
		return cli.Exit("", 1)
	}
	return nil
}

func buildAction(ctx context.Context, cmd *cli.Command) error {
	return runPipeline(ctx, cmd, false)
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	return runPipeline(ctx, cmd, true)
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	source, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return fmt.Errorf("open content dir: %w", err)
	}
	db, err := manifest.Open(cfg.Manifest.Path)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer db.Close()

	srv := mcpserver.New(source, db, validate.NewChecker(cfg.Content.MaxDescription))
	return srv.ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:  "ansuz",
		Usage: "Markdown-to-HTML publishing pipeline with frontmatter validation, incremental builds, and a live-reload dev server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build the site once and exit non-zero on errors",
				Flags:  buildFlags(),
				Action: buildAction,
			},
			{
				Name:   "validate",
				Usage:  "Parse, validate, and render without writing anything",
				Flags:  buildFlags(),
				Action: validateAction,
			},
			{
				Name:   "serve",
				Usage:  "Run the dev server: watch, rebuild, live-reload, JSON API",
				Action: serveAction,
			},
			{
				Name:   "mcp",
				Usage:  "Serve authoring tools over the Model Context Protocol on stdio",
				Action: mcpAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			slog.Error("application error", slog.String("error", msg))
		}
		os.Exit(1)
	}
}
