package main

import (
	"database/sql"
	"fmt"

	"github.com/amirasaad/deposit/infra"
	"github.com/amirasaad/deposit/infra/migrations"
	"github.com/amirasaad/deposit/pkg/config"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the payment store schema",
	}
	cmd.PersistentFlags().String("database-url", "", "postgres URL (defaults to DATABASE_URL)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, db *sql.DB) error {
			if err := migrations.Up(db); err != nil {
				return err
			}
			return printVersion(cmd, db)
		}),
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the given number of migrations.

Examples:
  deposit-cli migrate down --steps 1
  deposit-cli migrate down --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			if !all && steps <= 0 {
				return fmt.Errorf("pass --steps N or --all")
			}
			if all {
				steps = 0
			}
			return withDB(func(cmd *cobra.Command, db *sql.DB) error {
				if err := migrations.Down(db, steps); err != nil {
					return err
				}
				return printVersion(cmd, db)
			})(cmd, args)
		},
	}
	down.Flags().Int("steps", 1, "number of migrations to roll back")
	down.Flags().Bool("all", false, "roll back every migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE:  withDB(printVersion),
	})
	return cmd
}

func printVersion(cmd *cobra.Command, db *sql.DB) error {
	v, dirty, err := migrations.Version(db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
	return nil
}

func withDB(fn func(cmd *cobra.Command, db *sql.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		url, err := databaseURL(cmd)
		if err != nil {
			return err
		}
		conn, err := infra.NewDBConnection(&config.DB{Url: url}, "cli")
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		db, err := conn.DB()
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck
		return fn(cmd, db)
	}
}

func databaseURL(cmd *cobra.Command) (string, error) {
	if url, _ := cmd.Flags().GetString("database-url"); url != "" {
		return url, nil
	}
	loadEnvFile(cmd)
	var db config.DB
	if err := envconfig.Process("DATABASE", &db); err != nil {
		return "", fmt.Errorf("read database configuration: %w", err)
	}
	return db.Url, nil
}

func loadEnvFile(cmd *cobra.Command) {
	path, _ := cmd.Flags().GetString("env-file")
	if path == "" {
		return
	}
	_, _ = config.LoadEnvFile(path)
}
