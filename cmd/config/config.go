package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingnanl/infant-guard/internal/conf"
)

// Command creates the command that prints or writes the configuration.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		output  string
		example bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long:  "Print the configuration after defaults, config file, environment and flags are applied, or write it to a file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := settings
			if example {
				s = conf.DefaultSettings()
			}
			if output == "" {
				return conf.WriteYAML(cmd.OutOrStdout(), s)
			}
			if err := conf.SaveYAMLConfig(output, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&example, "example", false, "Use built-in defaults only")

	return cmd
}
