package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/database/seeders"
	"github.com/storefront-go/storefront/pkg/database"
	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/migration"
)

// bootDB opens the configured database. The caller closes it.
func (c *cli) bootDB() (*gorm.DB, error) {
	return database.Open(c.cfg.Database)
}

// storefront migrate
func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run all pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.bootDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			ran, err := migration.New(db).Run(cmd.Context())
			if err != nil {
				return err
			}
			if len(ran) == 0 {
				logger.Info("migrate: nothing to migrate")
			}
			for _, name := range ran {
				logger.Info("migrate: applied", "migration", name)
			}
			return nil
		},
	}
}

// storefront migrate:rollback
func (c *cli) migrateRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "migrate:rollback",
		Aliases: []string{"migrate:down"},
		Short:   "Rollback the last batch of migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.bootDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			rolled, err := migration.New(db).Rollback(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range rolled {
				logger.Info("migrate: rolled back", "migration", name)
			}
			return nil
		},
	}
}

// storefront migrate:status
func (c *cli) migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:status",
		Short: "Show the status of each migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.bootDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			rows, err := migration.New(db).Status(cmd.Context())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Migration", "Ran", "Batch")
			for _, r := range rows {
				batch := "-"
				if r.Ran {
					batch = strconv.Itoa(r.Batch)
				}
				if err := table.Append([]string{r.Name, fmt.Sprint(r.Ran), batch}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}

// storefront seed
func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Run all database seeders",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.bootDB()
			if err != nil {
				return err
			}
			defer database.Close(db)
			return seeders.RunAll(cmd.Context(), seeders.Deps{DB: db, Config: c.cfg})
		},
	}
}
