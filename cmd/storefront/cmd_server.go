package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/storefront-go/storefront/internal/server"
)

// storefront serve
func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"run", "start"},
		Short:   "Start the HTTP and gRPC servers with queue workers and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := server.Boot(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(ctx)
		},
	}
}

// storefront route:list
func (c *cli) routeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "route:list",
		Aliases: []string{"routes"},
		Short:   "List all registered named routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := server.Boot(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			k, err := app.Kernel()
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Method", "Path", "Name")
			for _, r := range k.Router.Routes() {
				if err := table.Append([]string{r.Method, r.Path, r.Name}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}
