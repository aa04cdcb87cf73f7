// Command storefront runs the storefront API and its maintenance tasks.
//
//	storefront serve
//	storefront migrate
//	storefront seed
//	storefront route:list
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/storefront-go/storefront/config"
	// Import migrations so their init() funcs run and register themselves.
	_ "github.com/storefront-go/storefront/database/migrations"
	"github.com/storefront-go/storefront/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the loaded configuration from the root command to its
// subcommands.
type cli struct {
	opts   config.Options
	cfg    *config.Config
	logOut io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{opts: config.DefaultOptions()}

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront API server and maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.opts)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logOut = logger.Setup(cfg.App, cfg.Log)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logOut != nil {
				_ = c.logOut.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.opts.ConfigPath, "config", c.opts.ConfigPath, "JSON config file")
	root.PersistentFlags().StringVar(&c.opts.EnvPath, "env", c.opts.EnvPath, ".env file")

	// Server
	root.AddCommand(c.serveCmd())
	root.AddCommand(c.routeListCmd())

	// Database
	root.AddCommand(c.migrateCmd())
	root.AddCommand(c.migrateRollbackCmd())
	root.AddCommand(c.migrateStatusCmd())
	root.AddCommand(c.seedCmd())

	// Workers
	root.AddCommand(c.queueWorkCmd())
	root.AddCommand(c.scheduleRunCmd())
	root.AddCommand(c.salesSweepCmd())
	return root
}
