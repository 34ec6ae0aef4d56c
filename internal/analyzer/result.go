package analyzer

import "github.com/aqasim81/safe-migrate/internal/operation"

// Banner tags distinguish tool diagnostics from ordinary migration errors.
const (
	bannerDangerous = "Dangerous operation detected!"
	bannerCustom    = "Custom check"
	bannerTag       = "#safe-migrate"
)

// UnsafeMigrationError aborts a migration before the operation it describes
// reaches the database.
type UnsafeMigrationError struct {
	Op       operation.Operation
	Template string // empty for custom check denials
	Vars     Vars
	Message  string // rendered remediation text
	Custom   bool
}

// Error returns the banner followed by the rendered message.
func (e *UnsafeMigrationError) Error() string {
	header := bannerDangerous
	if e.Custom {
		header = bannerCustom
	}

	return "\n=== " + header + " " + bannerTag + " ===\n\n" + e.Message + "\n"
}

// Is makes errors.Is(err, ErrUnsafeMigration) true.
func (e *UnsafeMigrationError) Is(target error) bool {
	return target == ErrUnsafeMigration
}

// TruncateSQL truncates a SQL string to maxLen characters for display.
func TruncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen || maxLen < 4 { //nolint:mnd // room for the ellipsis
		return sql
	}

	return sql[:maxLen-3] + "..."
}
