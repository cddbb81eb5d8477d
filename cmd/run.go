package cmd

import (
	"context"
	"os/exec"

	"github.com/google/uuid"
	"github.com/grovetools/i2pportal/cli"
	"github.com/grovetools/i2pportal/config"
	"github.com/grovetools/i2pportal/logging"
	"github.com/grovetools/i2pportal/pkg/display"
	"github.com/grovetools/i2pportal/pkg/launcher"
	"github.com/grovetools/i2pportal/pkg/privdrop"
	"github.com/grovetools/i2pportal/pkg/process"
	"github.com/grovetools/i2pportal/pkg/profiling"
	"github.com/grovetools/i2pportal/pkg/routerlog"
	"github.com/grovetools/i2pportal/pkg/supervisor"
	"github.com/grovetools/i2pportal/pkg/window"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRunCmd returns the session command. It is also what the root command runs.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the router and the browser and supervise them",
		Long: `Prepares the persisted state, starts the I2P router and then the browser as
the unprivileged user, arranges the browser window, and waits. When the browser
exits the router is stopped and the browser's exit code is returned. SIGINT and
SIGTERM stop both and exit with 128 plus the signal number.`,
		Args: cobra.NoArgs,
		RunE: runSession,
	}
}

func runSession(cmd *cobra.Command, args []string) error {
	session, err := loadSession(cli.GetOptions(cmd))
	if err != nil {
		return cli.Exit(1, err)
	}

	logging.SetSession(uuid.NewString())
	logger := logging.NewLogger("portal")
	logger.WithFields(logrus.Fields{
		"user":        session.Identity,
		"config_root": session.ConfigRoot,
		"router_home": session.RouterHome,
		"display":     session.Display,
		"geometry":    session.Geometry.String(),
		"config_file": session.ConfigFile,
	}).Info("Starting portal session")

	dropper := privdrop.New()
	span := profiling.Start("prepare")
	err = session.Prepare(logging.NewLogger("state"), config.PrepareOptions{Privileged: dropper.Privileged()})
	span.Stop()
	if err != nil {
		return cli.Exit(1, err)
	}

	l := launcher.New(session, dropper, launcher.WithLogger(logging.NewLogger("launcher")))
	driver := window.Detect(session.Display, exec.LookPath)
	logger.WithField("tool", driver.Name()).Debug("Window tool selected")

	sup := supervisor.New(supervisor.Options{
		Launcher: l,
		PIDFile:  l.PIDFile(),
		Stopper:  process.NewStopper(session.TeardownAttempts, session.TeardownInterval, logging.NewLogger("teardown")),
		Normalizer: &window.Normalizer{
			Driver:   driver,
			Pattern:  session.BrowserWindow,
			Attempts: session.WindowAttempts,
			Interval: session.WindowInterval,
			Geometry: session.Geometry,
			Logger:   logging.NewLogger("window"),
		},
		WaitDisplay: func(ctx context.Context) error {
			return display.WaitReady(ctx, session.Display, session.DisplayWait)
		},
		FollowRouterLog: func() (supervisor.LogFollower, error) {
			f, err := routerlog.Follow(session.RouterLogFile(), logging.NewLogger("router"))
			if err != nil {
				return nil, err
			}
			return f, nil
		},
		Logger: logging.NewLogger("supervisor"),
	})

	code, err := sup.Run(cmd.Context())
	return cli.Exit(code, err)
}
