package main

import (
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/ingressos/internal/config"
	"github.com/iliyamo/ingressos/internal/database"
	"github.com/iliyamo/ingressos/internal/repository"
	"github.com/iliyamo/ingressos/internal/service"
)

// commandContext loads configuration and opens the database on first use
// so commands that need neither (token) start without a database.
type commandContext struct {
	cfg    *config.Config
	db     *sqlx.DB
	logger *logrus.Logger
}

func (c *commandContext) loadConfig() config.Config {
	if c.cfg == nil {
		cfg := config.Load()
		c.cfg = &cfg
	}
	return *c.cfg
}

func (c *commandContext) openDB() (*sqlx.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := database.Connect(c.loadConfig())
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

func (c *commandContext) deps() (service.Deps, error) {
	db, err := c.openDB()
	if err != nil {
		return service.Deps{}, err
	}
	return service.Deps{
		Store: repository.NewStore(db),
		Log:   logrus.NewEntry(c.logger),
	}, nil
}

func (c *commandContext) close() {
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool
	ctx := &commandContext{logger: logrus.New()}

	root := &cobra.Command{
		Use:           "ticketctl",
		Short:         "Operator tools for the ingressos ticket service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx.logger.SetOutput(cmd.ErrOrStderr())
			ctx.logger.SetLevel(logrus.WarnLevel)
			if verbose {
				ctx.logger.SetLevel(logrus.DebugLevel)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(newMigrateCommand(ctx))
	root.AddCommand(newTokenCommand(ctx))
	root.AddCommand(newValidateCommand(ctx))
	root.AddCommand(newCloneSessionCommand(ctx))
	return root
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
