package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/safe-migrate/internal/migration"
	"github.com/aqasim81/safe-migrate/internal/tracker"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show migration status",
	Long: `Display every migration on disk and in the tracking table: applied,
rolled back, pending, or applied but missing from the migrations directory.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	statusCmd.Flags().String("format", "", "output format (text, json); defaults to the configured format")
	rootCmd.AddCommand(statusCmd)
}

// Migration states shown by status.
const (
	statePending     = "pending"
	stateMissingFile = "missing_file"
	stateChanged     = "checksum_mismatch"
)

type statusRow struct {
	Version   string     `json:"version"`
	Name      string     `json:"name"`
	State     string     `json:"state"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	out := cmd.OutOrStdout()

	format := flagOr(cmd, "format", cfg.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	files, err := migration.LoadFromDir(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer pool.Close()

	t := newTracker(pool, cfg)
	if err := t.EnsureTable(ctx); err != nil {
		return err
	}

	records, err := t.GetAll(ctx)
	if err != nil {
		return err
	}

	return printStatus(out, format, buildStatus(migration.Sort(files), records))
}

// buildStatus joins migration files with tracking records, in file order,
// followed by records whose file is gone.
func buildStatus(files []migration.Migration, records []tracker.AppliedMigration) []statusRow {
	byVersion := make(map[string]tracker.AppliedMigration, len(records))
	for _, r := range records {
		byVersion[r.Version] = r
	}

	rows := make([]statusRow, 0, len(files))

	for _, f := range files {
		row := statusRow{Version: f.Version, Name: f.Name, State: statePending}

		if r, ok := byVersion[f.Version]; ok {
			row.State = r.Status
			if r.Status == tracker.StatusApplied && r.Checksum != f.Checksum {
				row.State = stateChanged
			}

			appliedAt := r.AppliedAt
			row.AppliedAt = &appliedAt

			delete(byVersion, f.Version)
		}

		rows = append(rows, row)
	}

	orphans := make([]statusRow, 0, len(byVersion))

	for _, r := range byVersion {
		if r.Status != tracker.StatusApplied {
			continue
		}

		appliedAt := r.AppliedAt
		orphans = append(orphans, statusRow{
			Version:   r.Version,
			Name:      r.Filename,
			State:     stateMissingFile,
			AppliedAt: &appliedAt,
		})
	}

	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Version < orphans[j].Version })

	return append(rows, orphans...)
}

func printStatus(out io.Writer, format string, rows []statusRow) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("encoding status: %w", err)
		}

		return nil
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No migrations found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATE\tAPPLIED AT")

	pending := 0

	for _, r := range rows {
		appliedAt := "-"
		if r.AppliedAt != nil {
			appliedAt = r.AppliedAt.Format(time.DateTime)
		}

		if r.State == statePending {
			pending++
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Version, r.Name, r.State, appliedAt)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing status: %w", err)
	}

	fmt.Fprintf(out, "\n%d pending.\n", pending)

	return nil
}
