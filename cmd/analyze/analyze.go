package analyze

import (
	"github.com/spf13/cobra"

	"github.com/jingnanl/infant-guard/internal/analysis"
	"github.com/jingnanl/infant-guard/internal/conf"
)

// Command creates the command that classifies a single audio file.
func Command(settings *conf.Settings) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "analyze [input.wav|input.flac]",
		Short: "Analyze an audio file for crying and laughter",
		Long:  "Decode a WAV or FLAC file, extract its loudness, spectral and temporal features and print the classification.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := analysis.FileAnalysis(args[0], settings.Thresholds())
			if err != nil {
				return err
			}
			return analysis.WriteResult(cmd.OutOrStdout(), res, format)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", analysis.FormatTable, "Output format (table or json)")

	return cmd
}
