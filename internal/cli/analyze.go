package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/config"
	"github.com/aqasim81/safe-migrate/internal/database"
	"github.com/aqasim81/safe-migrate/internal/dialect"
	"github.com/aqasim81/safe-migrate/internal/executor"
	"github.com/aqasim81/safe-migrate/internal/metrics"
	"github.com/aqasim81/safe-migrate/internal/migration"
)

var analyzeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "analyze [migration-dir]",
	Short: "Check migrations for unsafe operations without running them",
	Long: `Check every migration the way apply would, without executing anything.

With a database URL the checks see the live server version and column
types. Without one they run offline against target_dialect and
target_version from the configuration.`,
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	analyzeCmd.Flags().String("format", "", "output format (text, json); defaults to the configured format")
	analyzeCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file")
	analyzeCmd.Flags().Bool("color", false, "colorize text output")
	rootCmd.AddCommand(analyzeCmd)
}

// errUnsafeMigrations is returned when at least one migration was denied.
var errUnsafeMigrations = errors.New("unsafe migrations detected")

// errUnknownFormat is returned for an unsupported --format value.
var errUnknownFormat = errors.New("unknown output format")

// checkResult is the outcome of analyzing one migration.
type checkResult struct {
	Version  string `json:"version"`
	Name     string `json:"name"`
	Outcome  string `json:"outcome"`
	Template string `json:"template,omitempty"`
	Custom   bool   `json:"custom,omitempty"`
	Message  string `json:"message,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := AppConfig
	out := cmd.OutOrStdout()

	dir := cfg.MigrationsDir
	if len(args) > 0 {
		dir = args[0]
	}

	format := flagOr(cmd, "format", cfg.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	sorted, err := loadAndSortMigrations(dir, out)
	if err != nil || sorted == nil {
		return err
	}

	ctx := commandContext(cmd)

	conn, err := analysisConn(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck // read-only connection

	collector := metrics.New()
	exec := executor.New(nil, nil,
		executor.WithDispatcher(newDispatcher(cfg, collector)),
		executor.WithLogger(Logger),
	)

	results := make([]checkResult, 0, len(sorted))

	for i := range sorted {
		r, err := checkMigration(ctx, exec, conn, &sorted[i])
		if err != nil {
			return err
		}

		results = append(results, r)
	}

	color, _ := cmd.Flags().GetBool("color")
	if err := printResults(out, format, color, results); err != nil {
		return err
	}

	if path := flagOr(cmd, "metrics-file", cfg.MetricsFile); path != "" {
		if err := collector.WriteFile(path); err != nil {
			return err
		}
	}

	if countDenied(results) > 0 {
		return errUnsafeMigrations
	}

	return nil
}

// analysisConn connects to the configured database, or falls back to an
// offline connection reporting the target dialect and version.
func analysisConn(ctx context.Context, cfg *config.Config) (database.Conn, error) {
	if cfg.DatabaseURL == "" {
		Logger.WithFields(logrus.Fields{
			"dialect": cfg.TargetDialect,
			"version": cfg.TargetVersion,
		}).Debug("analyzing offline")

		return offlineConn{dialect.NewStatic(cfg.TargetDialect, cfg.TargetVersion)}, nil
	}

	Logger.WithField("url", config.RedactURL(cfg.DatabaseURL)).Debug("analyzing against live database")

	conn, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return conn, nil
}

type offlineConn struct {
	*dialect.Static
}

func (offlineConn) Close() error { return nil }

// checkMigration classifies one migration. Denials become results; any
// other failure (unparseable SQL, failed dialect detection) is returned as an error.
func checkMigration(ctx context.Context, exec *executor.Executor, conn dialect.Conn, m *migration.Migration) (checkResult, error) {
	r := checkResult{Version: m.Version, Name: m.Name, Outcome: analyzer.Allowed.String()}

	err := exec.Check(ctx, conn, m)

	var unsafe *analyzer.UnsafeMigrationError

	switch {
	case err == nil:
		return r, nil
	case errors.As(err, &unsafe):
		r.Outcome = analyzer.Denied.String()
		r.Template = unsafe.Template
		r.Custom = unsafe.Custom
		r.Message = unsafe.Message

		return r, nil
	default:
		return r, fmt.Errorf("analyzing migration %s: %w", m.Version, err)
	}
}

func printResults(out io.Writer, format string, color bool, results []checkResult) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}

		return nil
	}

	for _, r := range results {
		label := "ok"
		outcome := analyzer.Allowed

		if r.Outcome == analyzer.Denied.String() {
			label = "UNSAFE"
			outcome = analyzer.Denied
		}

		if color {
			label = outcome.Color() + label + "\033[0m"
		}

		fmt.Fprintf(out, "  %-6s %s_%s\n", label, r.Version, r.Name)

		if r.Message != "" {
			fmt.Fprintf(out, "\n%s\n\n", indent(r.Message))
		}
	}

	fmt.Fprintf(out, "\nChecked %d migration(s): %d unsafe.\n", len(results), countDenied(results))

	return nil
}

func countDenied(results []checkResult) int {
	n := 0

	for _, r := range results {
		if r.Outcome == analyzer.Denied.String() {
			n++
		}
	}

	return n
}
