package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/i2pportal/cli"
	"github.com/grovetools/i2pportal/pkg/routerlog"
	"github.com/spf13/cobra"
)

// DefaultLogLines is how many router log lines the logs command prints.
const DefaultLogLines = 50

// NewLogsCmd prints the tail of the router log, optionally following it.
func NewLogsCmd() *cobra.Command {
	var (
		lines  int
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the router log",
		Long: `Show the last lines of the router log. With --follow new lines are printed
until interrupted. A negative --tail prints the whole log.

Examples:
  # Follow the router log
  i2pportal logs -f

  # Print the last 200 lines
  i2pportal logs --tail 200
`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := loadSession(cli.GetOptions(cmd))
			if err != nil {
				return cli.Exit(1, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := session.RouterLogFile()
			if err := routerlog.Show(ctx, path, lines, follow, cmd.OutOrStdout()); err != nil {
				if os.IsNotExist(err) {
					return cli.Exit(1, fmt.Errorf("no router log at %s yet", path))
				}
				return cli.Exit(1, fmt.Errorf("error reading router log: %w", err))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "tail", "n", DefaultLogLines, "Number of lines to show from the end of the log")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new log lines")
	return cmd
}
