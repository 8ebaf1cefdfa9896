// Package ingest provides the ingest command
package ingest

import (
	"github.com/spf13/cobra"

	"github.com/batatlas/batatlas/internal/app"
	"github.com/batatlas/batatlas/internal/ingest"
	"github.com/batatlas/batatlas/internal/logger"
)

// Command creates and returns the ingest command
func Command(appCtx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [occurrence.txt[.gz|.zst]]...",
		Short: "Load GBIF occurrence downloads into the store",
		Long: `Ingest reads tab-separated GBIF occurrence downloads, optionally gzip or zstd
compressed, and inserts them into the configured store. Records whose gbifID is
already present are skipped, so a download can be loaded again safely.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := appCtx.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			log := appCtx.Log.Module("ingest")
			for _, path := range args {
				stats, err := ingest.File(cmd.Context(), path, store, ingest.Options{
					BatchSize: appCtx.Settings.Datastore.BatchSize,
					Log:       log.With(logger.String("file", path)),
				})
				if err != nil {
					return err
				}
				cmd.Printf("%s: %d lines, %d imported, %d skipped\n", path, stats.Lines, stats.Imported, stats.Skipped)
			}

			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("store now holds %d occurrences\n", total)
			return nil
		},
	}

	return cmd
}
