package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/safe-migrate/internal/metrics"
)

var rollbackCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "rollback",
	Short: "Roll back applied migrations",
	Long: `Roll back one or more previously applied migrations, newest first,
using their down migration files. Down migrations are never checked.`,
	RunE: runRollback,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rollbackCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	rollbackCmd.Flags().String("target", "", "roll back every migration newer than this version")
	rollbackCmd.Flags().Bool("dry-run", false, "list what would be rolled back without executing")
	rollbackCmd.Flags().Bool("wait", false, "wait for a concurrent run to finish instead of failing")
	rollbackCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	rollbackCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	rootCmd.AddCommand(rollbackCmd)
}

// errStepsAndTarget is returned when both --steps and --target are given.
var errStepsAndTarget = errors.New("--steps and --target are mutually exclusive")

func runRollback(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	out := cmd.OutOrStdout()

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	steps, _ := cmd.Flags().GetInt("steps")
	target, _ := cmd.Flags().GetString("target")

	if cmd.Flags().Changed("steps") && target != "" {
		return errStepsAndTarget
	}

	opts := runOptions(cmd, cfg)

	sorted, err := loadAndSortMigrations(cfg.MigrationsDir, out)
	if err != nil || sorted == nil {
		return err
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	p := &progress{out: out, collector: metrics.New()}
	exec := newExecutor(pool, cfg, opts, p)

	if target != "" {
		err = exec.RollbackToVersion(ctx, sorted, target)
	} else {
		err = exec.Rollback(ctx, sorted, steps)
	}

	if err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Fprintf(out, "\nDry run complete: %d migration(s) would be rolled back.\n", p.checked)
	} else {
		fmt.Fprintf(out, "\nRollback complete: %d rolled back.\n", p.done)
	}

	return nil
}
