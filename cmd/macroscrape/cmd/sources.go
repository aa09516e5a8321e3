package cmd

import (
	"macroscrape/internal/components/telemetry"
	"macroscrape/internal/runner"
	"macroscrape/internal/sources"
	"macroscrape/pkg/serviceutil"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the sources that can be run and where their output goes.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		deps := sources.Deps{
			Config: cfg,
			Clock:  loadClock(cfg),
			Tel:    telemetry.SlogAPI{},
		}
		enabled := runner.Enabled(runner.Catalog, cfg)

		t := serviceutil.NewTable()
		t.AppendHeader(table.Row{"Name", "Description", "Needs", "--all", "Output"})
		for _, e := range runner.Catalog {
			src, err := e.New(deps)
			if err != nil {
				serviceutil.Fatal("failed to build source "+e.Name, err)
			}
			desc := src.Describe()

			var needs []string
			if desc.Browser {
				needs = append(needs, "browser")
			}
			needs = append(needs, desc.Credentials...)

			inAll := ""
			for _, name := range enabled {
				if name == e.Name {
					inAll = "yes"
				}
			}

			path, err := cfg.OutputPath(e.Name)
			if err != nil {
				serviceutil.Fatal("failed to resolve output path", err)
			}
			t.AppendRow(table.Row{e.Name, e.Summary, strings.Join(needs, ", "), inAll, path})
		}
		t.Render()
	},
}
