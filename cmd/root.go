// Package cmd assembles the batatlas command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/batatlas/batatlas/cmd/bins"
	configcmd "github.com/batatlas/batatlas/cmd/config"
	"github.com/batatlas/batatlas/cmd/ingest"
	"github.com/batatlas/batatlas/cmd/points"
	"github.com/batatlas/batatlas/cmd/remarks"
	"github.com/batatlas/batatlas/internal/app"
	"github.com/batatlas/batatlas/internal/buildinfo"
	"github.com/batatlas/batatlas/internal/conf"
)

// Execute runs the CLI and returns the process exit code.
func Execute(build *buildinfo.Context) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &app.Context{Build: build}
	rootCmd := RootCommand(appCtx)
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := appCtx.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// RootCommand creates and returns the root command
func RootCommand(appCtx *app.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "batatlas",
		Short:         "Spatiotemporal biodiversity bins from GBIF occurrence records",
		Version:       appCtx.Build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		bins.Command(appCtx),
		points.Command(appCtx),
		remarks.Command(appCtx),
		ingest.Command(appCtx),
		configcmd.Command(appCtx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		settings, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		return appCtx.Init(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface and
// binds them to their configuration keys.
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config file (default ./config.yaml or ~/.config/batatlas/config.yaml)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("datastore-type", "", "Occurrence store: sqlite, mysql or postgres")
	flags.String("datastore-path", "", "SQLite database path")
	flags.Int("workers", 0, "Worker pool size (0 uses all CPUs)")
	flags.Int("min-records", 0, "Minimum records for a bin to be emitted")
	flags.String("metrics-textfile", "", "Write Prometheus metrics to this file after the run")

	bindings := map[string]string{
		"debug":                 "debug",
		"datastore.type":        "datastore-type",
		"datastore.sqlite.path": "datastore-path",
		"pipeline.workers":      "workers",
		"pipeline.minrecords":   "min-records",
		"metrics.textfile":      "metrics-textfile",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
