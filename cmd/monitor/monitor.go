package monitor

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingnanl/infant-guard/internal/analysis"
	"github.com/jingnanl/infant-guard/internal/buildinfo"
	"github.com/jingnanl/infant-guard/internal/conf"
)

// Command creates the command that runs the realtime capture loop.
func Command(settings *conf.Settings, info *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Monitor the crib in realtime",
		Long: `Record a clip from the capture device every interval, classify it, take a camera
snapshot, ask the judge for a verdict and store, publish and notify the result.
The HTTP API runs alongside unless disabled in the configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.RealtimeAnalysis(cmd.Context(), settings, info)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}

	return cmd
}

// setupFlags configures flags specific to the monitor command and ties them
// to their configuration keys.
func setupFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("source", "", "Audio capture device name or ID substring, empty for system default")
	flags.Duration("interval", conf.DefaultMonitorInterval, "Time between capture cycles")
	flags.String("snapshot", "", "Camera snapshot URL or file path")
	flags.String("port", "", "HTTP API port")

	bindings := map[string]string{
		"source":   "audio.source",
		"interval": "monitor.interval",
		"snapshot": "snapshot.source",
		"port":     "webserver.port",
	}
	for name, key := range bindings {
		if err := conf.AnnotateFlag(flags, name, key); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
