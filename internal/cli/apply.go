package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/config"
	"github.com/aqasim81/safe-migrate/internal/executor"
	"github.com/aqasim81/safe-migrate/internal/metrics"
	"github.com/aqasim81/safe-migrate/internal/migration"
)

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations in order, one statement at a time, with
configurable lock and statement timeouts. An unsafe operation stops the
run before it reaches the database. Dry-run mode checks pending migrations
against the live database without executing them.`,
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	applyCmd.Flags().Bool("dry-run", false, "check pending migrations without executing them")
	applyCmd.Flags().Bool("wait", false, "wait for a concurrent run to finish instead of failing")
	applyCmd.Flags().Bool("safety-assured", false, "disable every safety check for this run")
	applyCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	applyCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	rootCmd.AddCommand(applyCmd)
}

type runOpts struct {
	lockTimeout time.Duration
	stmtTimeout time.Duration
	dryRun      bool
	wait        bool
}

func runApply(cmd *cobra.Command, _ []string) error {
	cfg := applyConfig(cmd)

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	opts := runOptions(cmd, cfg)

	sorted, err := loadAndSortMigrations(cfg.MigrationsDir, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer pool.Close()

	return executeMigrations(ctx, cmd.OutOrStdout(), pool, cfg, sorted, opts)
}

// applyConfig returns a copy of the loaded configuration with the
// command's --safety-assured flag applied.
func applyConfig(cmd *cobra.Command) *config.Config {
	cfg := *AppConfig

	if assured, _ := cmd.Flags().GetBool("safety-assured"); assured {
		cfg.SafetyAssured = true
	}

	return &cfg
}

// runOptions reads the flags shared by apply and rollback.
func runOptions(cmd *cobra.Command, cfg *config.Config) runOpts {
	opts := runOpts{
		lockTimeout: cfg.LockTimeout,
		stmtTimeout: cfg.StatementTimeout,
	}

	if cmd.Flags().Changed("lock-timeout") {
		opts.lockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	if cmd.Flags().Changed("statement-timeout") {
		opts.stmtTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}

	opts.dryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.wait, _ = cmd.Flags().GetBool("wait")

	return opts
}

// progress prints executor events and counts them.
type progress struct {
	out       io.Writer
	collector *metrics.Collector
	done      int
	skipped   int
	checked   int
}

func (p *progress) handle(event executor.ProgressEvent) {
	verb := "Applying"
	if event.Direction == analyzer.Down {
		verb = "Rolling back"
	}

	switch event.Status {
	case executor.StatusStarting:
		fmt.Fprintf(p.out, "  %s %s_%s ... ", verb, event.Migration.Version, event.Migration.Name)
	case executor.StatusCompleted:
		fmt.Fprintf(p.out, "done (%s)\n", event.Duration.Truncate(time.Millisecond))
		p.done++
	case executor.StatusSkipped:
		p.skipped++
	case executor.StatusChecked:
		fmt.Fprintf(p.out, "  ok %s_%s\n", event.Migration.Version, event.Migration.Name)
		p.checked++
	case executor.StatusFailed:
		fmt.Fprintf(p.out, "FAILED %s_%s\n", event.Migration.Version, event.Migration.Name)
	}

	p.collector.Migration(event.Direction, event.Status, event.Duration)
}

func newExecutor(pool *pgxpool.Pool, cfg *config.Config, opts runOpts, p *progress) *executor.Executor {
	return executor.New(pool, newTracker(pool, cfg),
		executor.WithDispatcher(newDispatcher(cfg, p.collector)),
		executor.WithLogger(Logger),
		executor.WithLockTimeout(opts.lockTimeout),
		executor.WithStatementTimeout(opts.stmtTimeout),
		executor.WithDryRun(opts.dryRun),
		executor.WithWaitForLock(opts.wait),
		executor.WithProgressCallback(p.handle),
	)
}

func executeMigrations(
	ctx context.Context,
	out io.Writer,
	pool *pgxpool.Pool,
	cfg *config.Config,
	sorted []migration.Migration,
	opts runOpts,
) error {
	p := &progress{out: out, collector: metrics.New()}
	exec := newExecutor(pool, cfg, opts, p)

	if opts.dryRun {
		fmt.Fprintln(out, "\n--- DRY RUN (no changes will be made) ---")
	}

	err := exec.Apply(ctx, sorted)

	if cfg.MetricsFile != "" {
		if werr := p.collector.WriteFile(cfg.MetricsFile); werr != nil {
			Logger.WithError(werr).Warn("metrics not written")
		}
	}

	if err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Fprintf(out, "\nDry run complete: %d migration(s) would be applied, %d already applied.\n",
			p.checked, p.skipped)
	} else {
		fmt.Fprintf(out, "\nApply complete: %d applied, %d skipped.\n", p.done, p.skipped)
	}

	return nil
}
