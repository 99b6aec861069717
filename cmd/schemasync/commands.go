package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-schemasync/internal/fsutil"
	"github.com/goliatone/go-schemasync/internal/loader"
	"github.com/goliatone/go-schemasync/internal/metrics"
	"github.com/goliatone/go-schemasync/internal/prompt"
	"github.com/goliatone/go-schemasync/pkg/config"
	"github.com/goliatone/go-schemasync/pkg/drift"
	"github.com/goliatone/go-schemasync/pkg/orchestrator"
	"github.com/goliatone/go-schemasync/pkg/schema"
)

// exitError carries a non-zero exit status that has already been reported.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type flags struct {
	configPath    string
	sources       []string
	format        string
	typesDir      string
	validatorsDir string
	models        []string
	strict        bool
	prune         bool
	confirm       bool
	report        string
	metricsFile   string
	logLevel      string
	workers       int
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	// driver answers --confirm questions. Nil means the terminal.
	driver prompt.Driver
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	return a.execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return orchestrator.ExitOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return orchestrator.ExitFailure
}

func (a *app) rootCmd() *cobra.Command {
	opts := &flags{}

	root := &cobra.Command{
		Use:   "schemasync",
		Short: "Generate TypeScript types and zod validators from backend schemas",
		Long: `schemasync reads JSON Schema, OpenAPI or Go struct sources and writes one
TypeScript type file and one zod validator file per model.

  schemasync sync    write the generated files
  schemasync check   fail when the files on disk differ from the sources`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Path to the config file (default "+config.DefaultFile+" when present)")
	pf.StringArrayVarP(&opts.sources, "source", "s", nil, "Schema source: file, glob, URL or pkg:<import path> (repeatable)")
	pf.StringVarP(&opts.format, "format", "f", config.FormatAuto, "Source format: auto, jsonschema, openapi or gostruct")
	pf.StringVar(&opts.typesDir, "types-dir", "", "Directory for the generated TypeScript types")
	pf.StringVar(&opts.validatorsDir, "validators-dir", "", "Directory for the generated zod validators")
	pf.StringArrayVarP(&opts.models, "model", "m", nil, "Only emit this model and the models it references (repeatable)")
	pf.BoolVar(&opts.strict, "strict", false, "Fail when a constraint has no zod equivalent")
	pf.StringVar(&opts.report, "report", "", `Write the JSON run report to a path, or "-" for stdout`)
	pf.StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in the Prometheus textfile format")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.IntVarP(&opts.workers, "workers", "w", 0, "Concurrent workers (default GOMAXPROCS)")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Write the generated types and validators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, orchestrator.ModeSync, opts)
		},
	}
	syncCmd.Flags().BoolVar(&opts.prune, "prune", false, "Remove generated files whose model no longer exists")
	syncCmd.Flags().BoolVar(&opts.confirm, "confirm", false, "Ask before overwriting files that differ from the generated output")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the generated files are up to date without writing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, orchestrator.ModeCheck, opts)
		},
	}

	root.AddCommand(syncCmd, checkCmd)
	return root
}

func (a *app) run(cmd *cobra.Command, mode orchestrator.Mode, opts *flags) error {
	logger, err := newLogger(opts.logLevel, a.stderr)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	sources, err := orchestrator.ExpandSources(cfg.Sources)
	if err != nil {
		return err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return err
	}

	orch := orchestrator.New(a.orchestratorOptions(cfg, opts, mode, logger)...)
	started := time.Now()
	report, runErr := orch.Run(cmd.Context(), orchestrator.Request{
		Mode:    mode,
		Sources: sources,
		Format:  cfg.Format,
		Only:    cfg.Models,
		Layout:  layout,
		Strict:  cfg.Strict,
		Prune:   cfg.Prune,
	})
	elapsed := time.Since(started)
	if report.Mode == "" {
		// rejected before anything ran
		return runErr
	}
	if runErr != nil {
		logger.Debug("run finished with error", "mode", string(mode), "error", runErr)
	}

	if err := a.writeReport(cmd.Context(), report, opts.report); err != nil {
		return err
	}
	if opts.metricsFile != "" {
		if err := writeMetrics(opts.metricsFile, report, runErr, elapsed); err != nil {
			return err
		}
	}

	code := orchestrator.ExitCode(report, cfg.Strict)
	if code == orchestrator.ExitOK && runErr != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", runErr)
		code = orchestrator.ExitFailure
	}
	if code != orchestrator.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

func (a *app) orchestratorOptions(cfg *config.Config, opts *flags, mode orchestrator.Mode, logger *slog.Logger) []orchestrator.Option {
	var loaderOpts []schema.LoaderOption
	if cfg.HTTP.Enabled {
		loaderOpts = append(loaderOpts, schema.WithHTTPFallback(cfg.HTTP.Timeout))
	}

	options := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithWorkers(cfg.Workers),
		orchestrator.WithZodImport(cfg.Targets.ZodImport),
		orchestrator.WithLoader(loader.New(schema.NewLoaderOptions(loaderOpts...))),
		orchestrator.WithAdapterRegistry(orchestrator.NewDefaultAdapterRegistry(orchestrator.AdapterConfig{
			ValidateOpenAPI: cfg.OpenAPI.Validate,
			ValidateTag:     cfg.GoStruct.ValidateTag,
		})),
	}
	if mode == orchestrator.ModeSync && opts.confirm {
		driver := a.driver
		if driver == nil {
			driver = prompt.NewSurveyDriver()
		}
		options = append(options, orchestrator.WithConfirm(prompt.Overwrite(driver)))
	}
	return options
}

// resolveConfig loads the config file and lays the explicitly set flags
// over it.
func resolveConfig(cmd *cobra.Command, opts *flags) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if changed(cmd, "source") {
		cfg.Sources = opts.sources
	}
	if changed(cmd, "format") {
		cfg.Format = strings.ToLower(opts.format)
	}
	if changed(cmd, "types-dir") {
		cfg.Targets.Types.Dir = opts.typesDir
	}
	if changed(cmd, "validators-dir") {
		cfg.Targets.Validators.Dir = opts.validatorsDir
	}
	if changed(cmd, "model") {
		cfg.Models = opts.models
	}
	if changed(cmd, "strict") {
		cfg.Strict = opts.strict
	}
	if changed(cmd, "prune") {
		cfg.Prune = opts.prune
	}
	if changed(cmd, "workers") {
		cfg.Workers = opts.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func changed(cmd *cobra.Command, name string) bool {
	flag := cmd.Flag(name)
	return flag != nil && flag.Changed
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// writeReport prints the human summary and, when dest is set, the JSON
// report. With dest "-" the JSON owns stdout and the summary moves to
// stderr.
func (a *app) writeReport(ctx context.Context, report orchestrator.RunReport, dest string) error {
	switch dest {
	case "":
		writeSummary(a.stdout, report)
		return nil
	case "-":
		writeSummary(a.stderr, report)
		return report.WriteJSON(a.stdout)
	}

	writeSummary(a.stdout, report)
	var buf bytes.Buffer
	if err := report.WriteJSON(&buf); err != nil {
		return err
	}
	plan := fsutil.Plan{Writes: []fsutil.Write{{Path: dest, Content: buf.Bytes()}}}
	if _, err := fsutil.Commit(ctx, plan); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writeSummary(w io.Writer, report orchestrator.RunReport) {
	fmt.Fprintf(w, "%s: %s (%d model(s))\n", report.Mode, report.Status, len(report.Models))
	if report.Mode == orchestrator.ModeSync {
		fmt.Fprintf(w, "  files: %d written, %d unchanged, %d removed\n",
			len(report.FilesWritten), len(report.FilesUnchanged), len(report.FilesRemoved))
	}
	for _, u := range report.UnmappedConstraints {
		line := fmt.Sprintf("  unmapped %s: %s", qualified(u.Model, u.Field), u.Constraint)
		if u.Reason != "" {
			line += " (" + u.Reason + ")"
		}
		fmt.Fprintln(w, line)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(w, "  error %s: %s\n", qualified(e.Model, e.Field), e.Reason)
	}
	for _, file := range report.Drift {
		if file.Missing {
			fmt.Fprintf(w, "  missing %s\n", file.Path)
			continue
		}
		fmt.Fprintf(w, "  drifted %s\n", file.Path)
		for _, field := range file.Fields {
			fmt.Fprintf(w, "    %s: expected %q, found %q\n", field.Name, field.Expected, field.Actual)
		}
		if len(file.Fields) == 0 && file.DiffSummary != "" {
			for _, line := range strings.Split(strings.TrimRight(file.DiffSummary, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	for _, orphan := range report.Orphans {
		fmt.Fprintf(w, "  orphan %s\n", orphan)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}

func qualified(model, field string) string {
	switch {
	case model == "":
		return "-"
	case field == "":
		return model
	default:
		return model + "." + field
	}
}

func writeMetrics(path string, report orchestrator.RunReport, runErr error, elapsed time.Duration) error {
	drifted := 0
	var driftErr *drift.DriftError
	if errors.As(runErr, &driftErr) {
		drifted = len(driftErr.Models)
	}
	recorder := metrics.New()
	recorder.Record(metrics.Run{
		Mode:           string(report.Mode),
		Status:         string(report.Status),
		Models:         len(report.Models),
		FilesWritten:   len(report.FilesWritten),
		FilesUnchanged: len(report.FilesUnchanged),
		FilesRemoved:   len(report.FilesRemoved),
		Unmapped:       len(report.UnmappedConstraints),
		Errors:         len(report.Errors),
		DriftedModels:  drifted,
		Duration:       elapsed,
	})
	return recorder.WriteFile(path)
}
