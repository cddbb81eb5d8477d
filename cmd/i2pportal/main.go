package main

import (
	"context"
	"os"

	"github.com/grovetools/i2pportal/cli"
	"github.com/grovetools/i2pportal/cmd"
	"github.com/grovetools/i2pportal/logging"
	"github.com/grovetools/i2pportal/pkg/profiling"
	"github.com/grovetools/i2pportal/version"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"i2pportal",
		"Container entrypoint running an I2P router and a browser bound to it",
	)
	// With no subcommand the container runs a session.
	rootCmd.Args = cmd.NewRunCmd().Args
	rootCmd.RunE = cmd.NewRunCmd().RunE

	profiler := profiling.NewCobraProfiler(logging.NewLogger("profiling"))
	profiler.AddFlags(rootCmd)
	rootCmd.PersistentPreRunE = profiler.PreRun

	info := version.GetInfo()
	cli.SetVersionTemplate(rootCmd, info)

	rootCmd.AddCommand(cmd.NewRunCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cmd.NewStatusCmd())
	rootCmd.AddCommand(cmd.NewStopCmd())
	rootCmd.AddCommand(cmd.NewLogsCmd())
	rootCmd.AddCommand(cli.NewVersionCommand("i2pportal", info))
	cli.ApplyStyledHelpRecursive(rootCmd)

	err := rootCmd.ExecuteContext(context.Background())
	profiler.Finish()
	if err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		cli.NewErrorHandler(verbose).Handle(err)
	}
	os.Exit(cli.ExitCode(err))
}
