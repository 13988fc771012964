package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingnanl/infant-guard/cmd/analyze"
	configcmd "github.com/jingnanl/infant-guard/cmd/config"
	"github.com/jingnanl/infant-guard/cmd/monitor"
	"github.com/jingnanl/infant-guard/cmd/notify"
	"github.com/jingnanl/infant-guard/cmd/serve"
	"github.com/jingnanl/infant-guard/internal/buildinfo"
	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled in
// after flag parsing, before any subcommand runs.
func RootCommand(info *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string
	var central *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:           "infant-guard",
		Short:         "Baby monitor with cry and laughter detection",
		Version:       info.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(info.String() + "\n")

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		analyze.Command(settings),
		monitor.Command(settings, info),
		serve.Command(settings, info),
		notify.Command(settings),
		configcmd.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := conf.BindFlags(cmd.Flags()); err != nil {
			return err
		}
		var err error
		central, err = initialize(configFile, settings, info)
		return err
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if central != nil {
			return central.Close()
		}
		return nil
	}

	return rootCmd
}

// initialize loads the configuration, then sets up logging and telemetry.
func initialize(configFile string, settings *conf.Settings, info *buildinfo.Context) (*logger.CentralLogger, error) {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return nil, err
	}
	*settings = *loaded

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}
	logger.SetGlobal(central)

	if settings.Sentry.Enabled {
		if err := errors.InitSentry(settings.Sentry.DSN, settings.Sentry.Environment, info.Version()); err != nil {
			logger.Global().Module("main").Warn("telemetry disabled", logger.Error(err))
		}
	}
	return central, nil
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search working directory and user config dir)")
	flags.BoolP("debug", "d", false, "Enable debug output")

	if err := conf.AnnotateFlag(flags, "debug", "debug"); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
