package cmd

import (
	"fmt"

	"github.com/grovetools/i2pportal/cli"
	"github.com/grovetools/i2pportal/logging"
	"github.com/grovetools/i2pportal/pkg/pidfile"
	"github.com/grovetools/i2pportal/pkg/process"
	"github.com/spf13/cobra"
)

// NewStatusCmd reports whether the router recorded in the PID file is alive.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the router is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := loadSession(cli.GetOptions(cmd))
			if err != nil {
				return cli.Exit(1, err)
			}

			running, pid, err := pidfile.New(session.PIDFile).IsRunning()
			if err != nil {
				return cli.Exit(1, fmt.Errorf("error checking status: %w", err))
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Router stopped")
				// Non-zero for scripts and health checks.
				return cli.Exit(1, nil)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Router running (PID: %d)\nLog: %s\n", pid, session.RouterLogFile())
			return nil
		},
	}
}

// NewStopCmd stops a router left behind by a session that did not tear down.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the router recorded in the PID file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := loadSession(cli.GetOptions(cmd))
			if err != nil {
				return cli.Exit(1, err)
			}

			pf := pidfile.New(session.PIDFile)
			pid, ok, err := pf.Read()
			if err != nil {
				return cli.Exit(1, fmt.Errorf("error reading PID file: %w", err))
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Router is not running")
				return nil
			}

			stopper := process.NewStopper(session.TeardownAttempts, session.TeardownInterval, logging.NewLogger("teardown"))
			outcome, err := stopper.Stop(pid)
			if err != nil {
				return cli.Exit(1, fmt.Errorf("failed to stop router %d: %w", pid, err))
			}
			if err := pf.Clear(); err != nil {
				return cli.Exit(1, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Router %d stopped (%s)\n", pid, outcome)
			return nil
		},
	}
}
