package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/i2pportal/cli"
	"github.com/grovetools/i2pportal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewConfigCmd() *cobra.Command {
	var schema bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved session settings",
		Long: `Resolves the settings exactly as 'run' would (environment, then the settings
file, then defaults) and prints them. The output is a valid portal.yml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			opts := cli.GetOptions(cmd)

			if schema {
				data, err := config.GenerateSchema()
				if err != nil {
					return fmt.Errorf("failed to generate schema: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			session, err := loadSession(opts)
			if err != nil {
				return cli.Exit(1, err)
			}
			settings := session.Settings()

			if opts.JSONOutput {
				data, err := json.MarshalIndent(settings, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal settings: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			if session.ConfigFile != "" {
				fmt.Fprintf(out, "# Source: %s\n", session.ConfigFile)
			}
			data, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("failed to marshal settings: %w", err)
			}
			fmt.Fprint(out, string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&schema, "schema", false, "Print the JSON schema of the settings file instead")
	return cmd
}
