package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey/ml-spam-filter/internal/di"
)

func newStatsCmd(flags *di.CLIFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics of the persisted models",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unsupported format %q (text, json or yaml)", format)
			}

			return withDeps(flags, func(d deps) error {
				if err := loadModels(cmd.Context(), d); err != nil {
					return err
				}
				stats := d.service.Stats()
				if stats == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No training statistics available. Train the models first.")
					return nil
				}
				return writeStats(cmd.OutOrStdout(), stats, format)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	return cmd
}
