package cli

import (
	"github.com/grovetools/i2pportal/config"
	"github.com/grovetools/i2pportal/logging"
	"github.com/spf13/cobra"
)

// CommandOptions holds the flags shared by every portal command.
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a command with the standard portal flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to a portal.yml or portal.toml settings file")

	SetStyledHelp(cmd)

	return cmd
}

// GetOptions extracts the standard options from a command.
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// LoggingConfig applies the command flags on top of cfg: --verbose raises the
// level to debug and --json switches structured output to JSON.
func (o CommandOptions) LoggingConfig(cfg logging.Config) logging.Config {
	if o.Verbose {
		cfg.Level = "debug"
	}
	if o.JSONOutput {
		cfg.Format.Preset = "json"
	}
	return cfg
}

// Environ returns the environment as a map with the --config flag applied.
func (o CommandOptions) Environ(environ []string) map[string]string {
	env := config.EnvironMap(environ)
	if o.ConfigFile != "" {
		env["PORTAL_CONFIG"] = o.ConfigFile
	}
	return env
}
