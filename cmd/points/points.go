// Package points provides the points command
package points

import (
	"github.com/spf13/cobra"

	"github.com/batatlas/batatlas/internal/app"
	"github.com/batatlas/batatlas/internal/logger"
	"github.com/batatlas/batatlas/internal/pointexport"
)

// Command creates and returns the points command
func Command(appCtx *app.Context) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "points",
		Short: "Export one map point per occurrence",
		Long: `Points writes every occurrence with valid coordinates and a year in the
configured window, including unidentified records, keyed to the fine S2 cell
level. Remarks carrying import metadata are blanked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, appCtx, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")

	return cmd
}

func run(cmd *cobra.Command, appCtx *app.Context, out string) error {
	store, err := appCtx.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := appCtx.NewPipeline(store)
	if err != nil {
		return err
	}

	w, err := app.CreateOutput(out, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	csvWriter := pointexport.NewCSVWriter(w)

	res, err := p.Points(cmd.Context(), csvWriter)
	if err != nil {
		_ = w.Close()
		return err
	}
	if err := csvWriter.Flush(); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	appCtx.Log.Module("points").Info("points written",
		logger.String("out", out),
		logger.Int64("rows", res.Exported),
		logger.String("run_id", res.RunID))
	return nil
}
