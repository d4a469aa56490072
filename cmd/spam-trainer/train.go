package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey/ml-spam-filter/internal/core"
	"github.com/mikey/ml-spam-filter/internal/di"
)

func newTrainCmd(flags *di.CLIFlags) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train all models on a labeled CSV corpus",
		Long: `Train fits the vectorizer and every model on the corpus, evaluates them on a
stratified hold-out split and persists the result. The CSV needs a Category
column (spam or ham) and a Messages column.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(flags, func(d deps) error {
				path := dataset
				if path == "" {
					path = d.cfg.DatasetPath()
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Training on %s ...\n", path)

				stats, err := d.service.Train(cmd.Context(), path)
				var persistErr *core.PersistError
				if errors.As(err, &persistErr) {
					printTrainingSummary(out, persistErr.Statistics)
					return err
				}
				if err != nil {
					return err
				}

				printTrainingSummary(out, stats)
				fmt.Fprintf(out, "\nModels saved (version %s)\n", d.service.Version())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "Path to the training CSV (default from training.dataset_path)")
	return cmd
}
