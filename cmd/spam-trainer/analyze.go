package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikey/ml-spam-filter/internal/adapters/filter"
	"github.com/mikey/ml-spam-filter/internal/di"
	"github.com/mikey/ml-spam-filter/internal/utils"
)

func newAnalyzeCmd(flags *di.CLIFlags) *cobra.Command {
	var (
		file    string
		subject string
		content string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify a message with the persisted models",
		Long: `Analyze classifies either --subject/--content, or an RFC 5322 message read
from --file or standard input, and prints the ensemble verdict with simple
text statistics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(flags, func(d deps) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				if err := loadModels(ctx, d); err != nil {
					return err
				}
				tp := utils.NewTextProcessor(d.logger)

				if subject != "" || content != "" {
					result, err := d.service.Predict(ctx, subject, content)
					if err != nil {
						return err
					}
					printPrediction(out, result)
					printTextStats(out, tp.ComputeStats(utils.CombineSubjectBody(subject, content)))
					return nil
				}

				raw, err := readMessage(file, cmd.InOrStdin())
				if err != nil {
					return err
				}
				email, err := filter.ParseMessage(raw, "", nil)
				if err != nil {
					return err
				}
				if _, err := d.filter.ProcessEmail(ctx, email); err != nil {
					return err
				}
				printTextStats(out, tp.ComputeStats(utils.CombineSubjectBody(email.Subject, email.Body)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "RFC 5322 message file (default: stdin)")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject to classify")
	cmd.Flags().StringVar(&content, "content", "", "Body to classify")
	return cmd
}

func readMessage(file string, stdin io.Reader) ([]byte, error) {
	if file == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return data, nil
}
