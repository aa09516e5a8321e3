package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"macroscrape/internal/components/telemetry"
	"macroscrape/internal/config"
	"macroscrape/internal/runner"
	"macroscrape/internal/store"
	"macroscrape/pkg/serviceutil"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	runAll       bool
	runPerf      bool
	runOutputDir string
	runFormat    string
	runNoArchive bool
)

func init() {
	runCmd.Flags().BoolVar(&runAll, "all", false, "run every enabled source")
	runCmd.Flags().BoolVar(&runPerf, "perf", false, "export cpu, memory and goroutine gauges while running")
	runCmd.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "override output_dir")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "", "override output_format (json, csv, xlsx)")
	runCmd.Flags().BoolVar(&runNoArchive, "no-archive", false, "do not archive the run even if a store is configured")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [source...]",
	Short: "Collect the given sources once and write one output file per source.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg := loadConfig()
		if runOutputDir != "" {
			cfg.OutputDir = runOutputDir
		}
		if runFormat != "" {
			cfg.OutputFormat = runFormat
		}
		err := cfg.Validate()
		if err != nil {
			serviceutil.Fatal("invalid flags", err)
		}

		names := args
		if runAll {
			names = runner.Enabled(runner.Catalog, cfg)
		}
		if len(names) == 0 {
			serviceutil.Fatal("nothing to run", fmt.Errorf("pass source names or --all, see `macroscrape sources`"))
		}

		outcomes, err := runSources(ctx, cfg, names, runner.Catalog)
		printOutcomes(outcomes)
		if err != nil {
			serviceutil.Fatal("run failed", err)
		}
	},
}

// runSources returns instead of exiting so telemetry is flushed and the archive
// closed before the process ends.
func runSources(ctx context.Context, cfg config.Config, names []string, catalog []runner.Entry) ([]runner.Outcome, error) {
	otel, err := telemetry.SetupFromEnv(ctx, "macroscrape")
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		err := otel.Shutdown(context.WithoutCancel(ctx))
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()
	if runPerf {
		telemetry.InstrumentPerfStats(ctx, time.Second)
	}

	var archive *store.Store
	if cfg.Store.Enabled() && !runNoArchive {
		archive, err = store.Open(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		defer archive.Close()
	}

	r := runner.New(runner.Options{
		Config:  cfg,
		Clock:   loadClock(cfg),
		Tel:     telemetry.SlogAPI{},
		Store:   archive,
		Catalog: catalog,
	})
	return r.Run(ctx, names)
}

func printOutcomes(outcomes []runner.Outcome) {
	if len(outcomes) == 0 {
		return
	}

	t := serviceutil.NewTable()
	t.AppendHeader(table.Row{"Source", "Records", "Failures", "Invalid", "Took", "Output"})
	total := 0
	for _, o := range outcomes {
		out := o.Output
		if o.Err != nil {
			out = fmt.Sprintf("error: %v", o.Err)
		}
		var reasons []string
		for _, f := range o.Failures {
			reasons = append(reasons, string(f.Reason))
		}
		failures := fmt.Sprint(len(o.Failures))
		if len(reasons) > 0 {
			failures = fmt.Sprintf("%d (%s)", len(o.Failures), strings.Join(dedupReasons(reasons), ", "))
		}
		t.AppendRow(table.Row{o.Source, o.Records, failures, o.Invalid, o.Duration.Round(time.Millisecond), out})
		total += o.Records
	}
	t.AppendFooter(table.Row{"total", total})
	t.Render()
}

func dedupReasons(reasons []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range reasons {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
