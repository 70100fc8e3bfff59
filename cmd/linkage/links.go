package main

import (
	"github.com/urfave/cli/v2"

	"github.com/panbanda/linkage/internal/output"
	"github.com/panbanda/linkage/internal/service/analysis"
)

func linksCmd() *cli.Command {
	return &cli.Command{
		Name:      "links",
		Usage:     "Show the links of one variable inside one method",
		ArgsUsage: "<model>",
		Description: `Links are read "from LV to". Without --index the state at method exit is
shown; with --index the state right after that statement (e.g. 0, 1.0.0).`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "method",
				Aliases:  []string{"m"},
				Usage:    "Fully qualified method (Owner.name)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "variable",
				Aliases:  []string{"v"},
				Usage:    "Variable name, e.g. a parameter, a local, this.items or <return>",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Statement index; defaults to method exit",
			},
		},
		Action: runLinksCmd,
	}
}

func runLinksCmd(c *cli.Context) error {
	path, err := modelPath(c)
	if err != nil {
		return err
	}
	svc, cfg, err := newService(c)
	if err != nil {
		return err
	}

	// cached summaries carry no per-statement state
	_, rep, err := svc.Uncached().AnalyzeFile(c.Context, path, nil)
	if err != nil {
		return err
	}

	view, err := analysis.Explain(rep, analysis.ExplainOptions{
		Method:   c.String("method"),
		Variable: c.String("variable"),
		Index:    c.String("index"),
	})
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.VariableTable(view))
}
