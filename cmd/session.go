package cmd

import (
	"os"

	"github.com/grovetools/i2pportal/cli"
	"github.com/grovetools/i2pportal/config"
	"github.com/grovetools/i2pportal/logging"
)

// loadSession resolves the session from the process environment and the
// command flags, then configures logging from it.
func loadSession(opts cli.CommandOptions) (*config.Session, error) {
	session, err := config.Resolve(opts.Environ(os.Environ()))
	if err != nil {
		return nil, err
	}
	logging.Configure(opts.LoggingConfig(session.Logging))
	return session, nil
}
