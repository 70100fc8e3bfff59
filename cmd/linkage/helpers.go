package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/linkage/internal/logging"
	"github.com/panbanda/linkage/internal/metrics"
	"github.com/panbanda/linkage/internal/output"
	"github.com/panbanda/linkage/internal/service/analysis"
	"github.com/panbanda/linkage/pkg/config"
)

// loadConfig reads --config when given, otherwise the first config file
// found from the working directory, otherwise the defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.LoadOrDefault(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// modelPath returns the single positional model argument.
func modelPath(c *cli.Context) (string, error) {
	switch c.Args().Len() {
	case 1:
		return c.Args().First(), nil
	case 0:
		return "", fmt.Errorf("%s: a program model path is required", c.Command.Name)
	default:
		return "", fmt.Errorf("%s: expected one program model, got %d", c.Command.Name, c.Args().Len())
	}
}

// newService builds the analysis service from config and global flags.
func newService(c *cli.Context) (*analysis.Service, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format, c.Bool("verbose") || cfg.Output.Verbose)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	svc := analysis.New(
		analysis.WithConfig(cfg),
		analysis.WithLogger(logger),
		analysis.WithMetrics(metrics.Default()),
	)
	return svc, cfg, nil
}

// newFormatter picks the output format from --format, falling back to config.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := c.String("format")
	if format == "" {
		format = cfg.Output.Format
	}
	return output.NewFormatter(output.ParseFormat(format), c.String("output"), cfg.Output.Color)
}
