package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"git.home.luguber.info/inful/buildwatch/internal/diagnostics"
	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/metrics"
	"git.home.luguber.info/inful/buildwatch/internal/report"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain/exectool"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Root string `short:"r" name:"root" help:"Project root (defaults to the working directory)"`
	JSON bool   `name:"json" help:"Print the report as JSON"`
}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	root.applyLogging(cfg, os.Stderr)

	projectRoot, err := resolveRoot(c.Root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	settings := cfg.Settings()
	model := report.NewModel()
	bc := toolchain.BuildConfig{
		ConfigPath: filepath.Join(projectRoot, settings.ConfigFileName),
		Context:    projectRoot,
		OutputDir:  cfg.Build.OutputDir,
		Args:       cfg.Build.Args,
		Report:     model,
		Recorder:   metrics.NoopRecorder{},
	}
	return RunCheck(ctx, exectool.NewLoader(cfg.Build.Package), bc, model, c.JSON, os.Stdout)
}

// RunCheck builds once with the toolchain from loader, fills model with the
// report and prints it to out. It returns a build error when the run had
// errors.
func RunCheck(ctx context.Context, loader toolchain.Loader, bc toolchain.BuildConfig, model *report.Model, asJSON bool, out io.Writer) error {
	tc, err := loader.Load(bc.Context)
	if err != nil {
		return err
	}
	compiler, err := tc.NewCompiler(bc)
	if err != nil {
		return err
	}
	runner, ok := compiler.(toolchain.Runner)
	if !ok {
		return ferrors.InternalError("toolchain compiler cannot run a single build").Build()
	}
	stats, err := runner.Run(ctx)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryBuild, "build run failed").Build()
	}

	records := diagnostics.NormalizeAll(stats.Errors(), stats.Warnings())
	model.Clear()
	for _, item := range diagnostics.BuildTree(records, stats.ShortenRequest) {
		model.AddItem(item)
	}

	if asJSON {
		if err := writeJSON(out, report.Take(model)); err != nil {
			return err
		}
	} else {
		printTree(out, model)
		_, _ = fmt.Fprintln(out, stats.String())
	}

	if n := len(stats.Errors()); n > 0 {
		return ferrors.BuildError(fmt.Sprintf("%d errors", n)).
			WithContext("errors", n).
			WithContext("warnings", len(stats.Warnings())).
			Build()
	}
	return nil
}

// printTree writes one indented line per item.
func printTree(out io.Writer, p report.Provider) {
	var walk func(items []*report.Item, depth int)
	walk = func(items []*report.Item, depth int) {
		for _, it := range items {
			d := p.TreeItem(it)
			line := strings.Repeat("  ", depth) + d.Label
			if d.Description != "" {
				line += " " + d.Description
			}
			_, _ = fmt.Fprintln(out, line)
			walk(p.Children(it), depth+1)
		}
	}
	walk(p.Children(nil), 0)
}

func writeJSON(out io.Writer, snap report.Snapshot) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return ferrors.InternalError("failed to encode report").WithCause(err).Build()
	}
	return nil
}
