// Package remarks provides the remarks command
package remarks

import (
	"github.com/spf13/cobra"

	"github.com/batatlas/batatlas/internal/app"
	"github.com/batatlas/batatlas/internal/remarks"
)

// Command creates and returns the remarks command
func Command(appCtx *app.Context) *cobra.Command {
	var out string
	var top int

	cmd := &cobra.Command{
		Use:   "remarks",
		Short: "List the most frequent occurrence remarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := appCtx.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := appCtx.NewPipeline(store)
			if err != nil {
				return err
			}
			entries, err := p.Remarks(cmd.Context(), top)
			if err != nil {
				return err
			}

			w, err := app.CreateOutput(out, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := remarks.WriteCSV(w, entries); err != nil {
				_ = w.Close()
				return err
			}
			return w.Close()
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	cmd.Flags().IntVarP(&top, "top", "n", 50, "Number of values to list, 0 for all")

	return cmd
}
