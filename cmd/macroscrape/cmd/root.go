package cmd

import (
	"fmt"
	"macroscrape/internal/components/chrono"
	"macroscrape/internal/components/telemetry"
	"macroscrape/internal/config"
	"macroscrape/pkg/serviceutil"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "macroscrape",
	Short: "macroscrape collects macroeconomic and commodity indicators from public sources into static files.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "macroscrape.json5", "path to the config file, merged with its .local override")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")
}

func Execute() {
	ctx := serviceutil.SignalContext()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		serviceutil.Fatal("failed to load config", err)
	}
	return cfg
}

func loadClock(cfg config.Config) chrono.API {
	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("failed to load timezone", err)
	}
	return clock
}
