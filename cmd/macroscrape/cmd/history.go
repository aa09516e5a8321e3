package cmd

import (
	"fmt"
	"macroscrape/internal/record"
	"macroscrape/internal/store"
	"macroscrape/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [source]",
	Short: "List archived runs, newest first.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if !cfg.Store.Enabled() {
			serviceutil.Fatal("no run archive", fmt.Errorf("set store.file or store.url in %s", configPath))
		}
		archive, err := store.Open(cfg.Store)
		if err != nil {
			serviceutil.Fatal("failed to open store", err)
		}
		defer archive.Close()

		source := ""
		if len(args) > 0 {
			source = args[0]
		}
		runs, err := archive.History(cmd.Context(), source, historyLimit)
		if err != nil {
			serviceutil.Fatal("failed to read history", err)
		}

		clock := loadClock(cfg)
		t := serviceutil.NewTable()
		t.AppendHeader(table.Row{"ID", "Source", "Started", "Took", "Records", "Failures", "Output"})
		for _, run := range runs {
			t.AppendRow(table.Row{
				run.ID,
				run.Source,
				run.StartedAt.In(clock.Location()).Format(record.TimestampLayout),
				run.FinishedAt.Sub(run.StartedAt),
				run.Records,
				run.Failures,
				run.Output,
			})
		}
		t.Render()
	},
}
