package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-extras/cobraflags"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"nutriadmin.org/internal/config"
	"nutriadmin.org/internal/migrate"
	"nutriadmin.org/internal/obs"
	"nutriadmin.org/ops/migrations"
)

const (
	dsnFlag        = "dsn"
	migrationsFlag = "migrations"
	seedsFlag      = "seeds"
)

var flags = map[string]cobraflags.Flag{
	dsnFlag: &cobraflags.StringFlag{
		Name:  dsnFlag,
		Value: "",
		Usage: "PostgreSQL DSN (defaults to " + config.EnvPrefix + "PG_DSN)",
	},
	migrationsFlag: &cobraflags.StringFlag{
		Name:  migrationsFlag,
		Value: "",
		Usage: "Directory holding *.up.sql and *.down.sql files (defaults to the embedded set)",
	},
	seedsFlag: &cobraflags.StringFlag{
		Name:  seedsFlag,
		Value: "",
		Usage: "Directory holding seed *.sql files (defaults to the embedded set)",
	},
}

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply nutriadmin database migrations and seeds",
		SilenceUsage: true,
	}

	root.AddCommand(
		command("up", "Apply pending migrations", func(ctx context.Context, m *migrate.Manager) error {
			applied, err := m.Up(ctx)
			printAll(applied)
			return err
		}),
		command("down", "Roll back the latest migration", func(ctx context.Context, m *migrate.Manager) error {
			return m.Down(ctx)
		}),
		command("seed", "Apply pending seed files", func(ctx context.Context, m *migrate.Manager) error {
			applied, err := m.Seed(ctx)
			printAll(applied)
			return err
		}),
		command("status", "List applied migrations", func(ctx context.Context, m *migrate.Manager) error {
			history, err := m.Status(ctx)
			printAll(history)
			return err
		}),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func command(use, short string, run func(context.Context, *migrate.Manager) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn := flags[dsnFlag].GetString()
			if dsn == "" {
				dsn = os.Getenv(config.EnvPrefix + "PG_DSN")
			}
			if dsn == "" {
				return fmt.Errorf("missing DSN: provide --%s or %sPG_DSN", dsnFlag, config.EnvPrefix)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			db, err := sql.Open("pgx", dsn)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			m := migrate.NewManager(db,
				source(flags[migrationsFlag].GetString(), migrations.SQL),
				source(flags[seedsFlag].GetString(), migrations.Seeds),
				migrate.WithLogger(obs.Logger()),
			)
			if err := run(ctx, m); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

// source prefers an on-disk directory over the embedded scripts.
func source(dir string, embedded func() fs.FS) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return embedded()
}

func printAll(names []string) {
	for _, n := range names {
		fmt.Println(n)
	}
}
