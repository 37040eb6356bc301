package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"pet-owner-reports/internal/adapters/output"
	"pet-owner-reports/internal/adapters/petstore"
	"pet-owner-reports/internal/config"
	"pet-owner-reports/internal/platform/logger"
	"pet-owner-reports/internal/platform/metrics"
	"pet-owner-reports/internal/reports"
	"pet-owner-reports/internal/runner"

	"github.com/spf13/cobra"
)

type runFlags struct {
	configPath    string
	baseURL       string
	outputDir     string
	timeout       time.Duration
	only          []string
	metricsFile   string
	lookupCeiling int
	rateLimit     float64
	dryRun        bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reports",
		Short:         "Derive the owner/pet reports from the pet-owner service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newListCmd())
	return root
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the available report names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range reports.All() {
				fmt.Fprintf(w, "%s\t%s\n", r.Name, r.Description)
			}
			return w.Flush()
		},
	}
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reports and write one output per report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runReports(ctx, cfg, f.dryRun, logger.NewFromEnv("pet-owner-reports"), cmd.OutOrStdout())
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML config file")
	fl.StringVar(&f.baseURL, "base-url", "", "base URL of the pet-owner service")
	fl.StringVar(&f.outputDir, "output-dir", "", "directory for report outputs")
	fl.DurationVar(&f.timeout, "timeout", 0, "overall run timeout (0 = none)")
	fl.StringSliceVar(&f.only, "only", nil, "run only these reports (comma separated)")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	fl.IntVar(&f.lookupCeiling, "lookup-ceiling", 0, "max in-flight nested lookups per report")
	fl.Float64Var(&f.rateLimit, "rate-limit", 0, "max requests per second to the service (0 = unlimited)")
	fl.BoolVar(&f.dryRun, "dry-run", false, "keep outputs in memory and print them instead of writing files")
	return cmd
}

// resolveConfig: defaults < archivo < env < flags explícitos.
func resolveConfig(cmd *cobra.Command, f runFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	fl := cmd.Flags()
	if fl.Changed("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if fl.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if fl.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if fl.Changed("only") {
		cfg.Only = f.only
	}
	if fl.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if fl.Changed("lookup-ceiling") {
		cfg.LookupCeiling = f.lookupCeiling
	}
	if fl.Changed("rate-limit") {
		cfg.RateLimit = f.rateLimit
	}
	return cfg, cfg.Validate()
}

// reportSink es lo que el CLI necesita de un sink además de runner.Sink.
type reportSink interface {
	runner.Sink
	Describe(name string) string
}

type fileSink struct{ *output.FileSink }

func (s fileSink) Describe(name string) string { return s.Path(name) }

// memorySink deja las salidas en memoria (--dry-run).
type memorySink struct{ *output.MemorySink }

func (s memorySink) Describe(name string) string {
	text, _ := s.Get(name)
	return fmt.Sprintf("(dry run, %d bytes)", len(text))
}

func newSink(cfg config.Config, dryRun bool) (reportSink, error) {
	if dryRun {
		return memorySink{output.NewMemorySink()}, nil
	}
	fs, err := output.NewFileSink(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	return fileSink{fs}, nil
}

func runReports(ctx context.Context, cfg config.Config, dryRun bool, log logger.Logger, out io.Writer) error {
	selected, err := reports.Select(cfg.Only)
	if err != nil {
		return err
	}

	client, err := petstore.NewClient(petstore.Config{
		BaseURL:   cfg.BaseURL,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
	})
	if err != nil {
		return err
	}

	sink, err := newSink(cfg, dryRun)
	if err != nil {
		return err
	}

	m := metrics.New()
	r, err := runner.New(runner.Options{
		Source:  client,
		Sink:    sink,
		Reports: selected,
		Limits:  cfg.Limits(),
		Lookup:  cfg.RetryPolicy(),
		Timeout: cfg.Timeout,
		Logger:  log,
		Metrics: m,
	})
	if err != nil {
		return err
	}

	s := r.Run(ctx)
	printSummary(out, s, sink)
	if ms, ok := sink.(memorySink); ok {
		printBlobs(out, s, ms.MemorySink)
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("could not write metrics textfile", map[string]any{"path": cfg.MetricsFile, "error": err})
		}
	}

	if failed := s.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d reports failed: %w", len(failed), len(s.Outcomes), s.Err())
	}
	return nil
}

func printSummary(out io.Writer, s runner.Summary, sink reportSink) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "REPORT\tSTATUS\tDURATION\tOUTPUT\n")
	for _, o := range s.Outcomes {
		detail := sink.Describe(o.Name)
		if o.Err != nil {
			detail = o.Err.Error()
			// el stack de un pánico va al log, no a la tabla
			var pe *runner.PanicError
			if errors.As(o.Err, &pe) {
				detail = fmt.Sprintf("panic: %v", pe.Value)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Name, o.Status, o.Duration.Round(time.Millisecond), detail)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "run %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
}

func printBlobs(out io.Writer, s runner.Summary, sink *output.MemorySink) {
	for _, o := range s.Outcomes {
		text, _ := sink.Get(o.Name)
		fmt.Fprintf(out, "\n== %s ==\n%s", o.Name, text)
	}
}
