package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/linkage/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates a linkage configuration file for syntax errors and invalid values.

Examples:
  linkage config validate                   # Validates default config locations
  linkage -c linkage.toml config validate   # Validates specific file`,
				Action: runConfigValidate,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the merged configuration from defaults and config file as TOML.

Examples:
  linkage config show
  linkage -c .linkage/linkage.yaml config show`,
				Action: runConfigShow,
			},
		},
	}
}

// resolveConfig returns the effective config and the file it came from, or
// "" for the defaults.
func resolveConfig(c *cli.Context) (*config.Config, string, error) {
	source := c.String("config")
	if source == "" {
		found, ok := config.Find(".")
		if !ok {
			return config.DefaultConfig(), "", nil
		}
		source = found
	}
	cfg, err := config.Load(source)
	if err != nil {
		return nil, source, err
	}
	return cfg, source, nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, source, err := resolveConfig(c)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		color.Red("Configuration validation failed:")
		fmt.Fprintf(c.App.Writer, "  - %s\n", err)
		return err
	}

	if source != "" {
		color.Green("Configuration valid: %s", source)
	} else {
		color.Yellow("No config file found. Default configuration is valid.")
	}
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, source, err := resolveConfig(c)
	if err != nil {
		return err
	}

	w := c.App.Writer
	if source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(w, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(*cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprint(w, string(content))
	return nil
}
