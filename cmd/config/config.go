// Package config provides the config command
package config

import (
	"github.com/spf13/cobra"

	"github.com/batatlas/batatlas/internal/app"
	"github.com/batatlas/batatlas/internal/conf"
)

// Command creates and returns the config command
func Command(appCtx *app.Context) *cobra.Command {
	var write string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Config prints the configuration after defaults, the config file, environment
variables and flags are applied. Secrets are redacted. With --write the
configuration is saved to a file instead, with credentials in their
configured form (${ENV} references and password files are not resolved).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if write != "" {
				if err := conf.SaveYAMLConfig(write, appCtx.Settings.Unresolved()); err != nil {
					return err
				}
				cmd.Printf("configuration written to %s\n", write)
				return nil
			}
			return conf.WriteYAML(cmd.OutOrStdout(), appCtx.Settings.Redacted())
		},
	}

	cmd.Flags().StringVarP(&write, "write", "w", "", "Save the configuration to this path")

	return cmd
}
