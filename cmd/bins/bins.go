// Package bins provides the bins command
package bins

import (
	"github.com/spf13/cobra"

	"github.com/batatlas/batatlas/internal/app"
	"github.com/batatlas/batatlas/internal/logger"
	"github.com/batatlas/batatlas/internal/report"
)

// Command creates and returns the bins command
func Command(appCtx *app.Context) *cobra.Command {
	var out, format string

	cmd := &cobra.Command{
		Use:   "bins",
		Short: "Compute diversity metrics per cell and 5-year block",
		Long: `Bins streams every occurrence from the store, keeps identified records with
valid coordinates and a year in the configured window, groups them by S2 cell
and time block and writes one row per bin with at least the minimum number of
records. Rows are ordered newest block first, then by species richness.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, appCtx, out, format)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv, json")

	return cmd
}

func run(cmd *cobra.Command, appCtx *app.Context, out, format string) error {
	store, err := appCtx.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := appCtx.NewPipeline(store)
	if err != nil {
		return err
	}

	res, err := p.Bins(cmd.Context())
	if err != nil {
		return err
	}

	w, err := app.CreateOutput(out, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	writer, err := report.NewWriter(format, w)
	if err != nil {
		_ = w.Close()
		return err
	}
	if err := writer.Write(res.Rows); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	appCtx.Log.Module("bins").Info("bins written",
		logger.String("out", out),
		logger.String("format", format),
		logger.Int("rows", len(res.Rows)),
		logger.String("run_id", res.RunID))
	return nil
}
