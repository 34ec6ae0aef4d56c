package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/analyzer/rules"
	"github.com/aqasim81/safe-migrate/internal/config"
	"github.com/aqasim81/safe-migrate/internal/database"
	"github.com/aqasim81/safe-migrate/internal/migration"
	"github.com/aqasim81/safe-migrate/internal/tracker"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New(
	"database URL is required (set --database-url, MIGRATE_DATABASE_URL, or database_url in config)",
)

// errPostgresRequired is returned when a command that runs migrations is
// pointed at a SQLite URL.
var errPostgresRequired = errors.New("running migrations requires a PostgreSQL database URL")

func loadAndSortMigrations(dir string, out io.Writer) ([]migration.Migration, error) {
	migrations, err := migration.LoadFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(migrations) == 0 {
		fmt.Fprintln(out, "No migration files found.")
		return nil, nil //nolint:nilnil // nil,nil signals "no migrations, no error"
	}

	return migration.Sort(migrations), nil
}

// connectDB opens the pool used to run migrations.
func connectDB(ctx context.Context, cfg *config.Config, out io.Writer) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errDatabaseURLRequired
	}

	if strings.HasPrefix(cfg.DatabaseURL, "sqlite:") {
		return nil, errPostgresRequired
	}

	fmt.Fprintf(out, "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pool, nil
}

func newTracker(pool *pgxpool.Pool, cfg *config.Config) *tracker.Tracker {
	return tracker.New(pool, tracker.WithTable(cfg.TrackingTable))
}

// newDispatcher builds the dispatcher for cfg. Custom checks come from the
// process-wide registry.
func newDispatcher(cfg *config.Config, recorder analyzer.Recorder) *analyzer.Dispatcher {
	return analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithSettings(cfg.Settings()),
		analyzer.WithLogger(Logger),
		analyzer.WithRecorder(recorder),
	)
}

// flagOr returns the named string flag when it was set, else fallback.
func flagOr(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}

	return fallback
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n    ")
}
