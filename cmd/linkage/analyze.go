package main

import (
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/linkage/internal/output"
	"github.com/panbanda/linkage/internal/progress"
	"github.com/panbanda/linkage/pkg/loader"
)

var errAnalysisFailed = errors.New("analysis reported error diagnostics")

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Compute link summaries for every method of a program model",
		ArgsUsage: "<model>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "methods",
				Aliases: []string{"m"},
				Usage:   "Only report these methods (Owner.name)",
			},
			&cli.BoolFlag{
				Name:  "fresh",
				Usage: "Ignore cached summaries for this run",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Do not show a progress bar",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	path, err := modelPath(c)
	if err != nil {
		return err
	}
	svc, cfg, err := newService(c)
	if err != nil {
		return err
	}
	if c.Bool("fresh") {
		svc = svc.Uncached()
	}

	p, err := loader.Load(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tracker *progress.Tracker
	var onProgress func(done, total int)
	if !c.Bool("no-progress") {
		tracker = progress.NewTracker("Linking methods...", len(p.MethodNames()))
		onProgress = tracker.Report
	}

	rep, err := svc.Analyze(ctx, p, onProgress)
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.FinishSuccess()
		}
	}
	if err != nil {
		return err
	}

	data, err := output.NewAnalysisData(rep, c.StringSlice("methods")...)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(output.AnalysisReport(data, formatter.Colored())); err != nil {
		return err
	}
	if len(rep.Unresolved) > 0 && formatter.Format() == output.FormatText {
		formatter.Warning("unresolved: %s", strings.Join(rep.Unresolved, ", "))
	}
	if rep.HasErrors() {
		return errAnalysisFailed
	}
	return nil
}
