package serve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingnanl/infant-guard/internal/analysis"
	"github.com/jingnanl/infant-guard/internal/buildinfo"
	"github.com/jingnanl/infant-guard/internal/conf"
)

// Command creates the command that runs only the HTTP API.
func Command(settings *conf.Settings, info *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API without local capture",
		Long:  "Run the HTTP API for devices that record audio themselves and post images and features for judgement.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.Serve(cmd.Context(), settings, info)
		},
	}

	cmd.Flags().String("port", "", "HTTP API port")
	if err := conf.AnnotateFlag(cmd.Flags(), "port", "webserver.port"); err != nil {
		panic(fmt.Errorf("error binding flags: %w", err))
	}

	return cmd
}
