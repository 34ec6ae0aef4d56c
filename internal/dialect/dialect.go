package dialect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Family is a database engine family.
type Family string

// Supported engine families.
const (
	Unknown    Family = "unknown"
	PostgreSQL Family = "postgresql"
	MySQL      Family = "mysql"
	SQLite     Family = "sqlite"
)

// PostgreSQL version thresholds, in server_version_num form.
const (
	PGVersionJSONB          = 90400
	PGVersionFastAddDefault = 110000
)

const (
	pgVersionNewNumbering = 10
	pgMajorFactor         = 10000
	pgMinorFactorLegacy   = 100
	sqliteMajorFactor     = 1000000
	sqliteMinorFactor     = 1000
)

// Conn is the slice of a live connection the engine needs. Implementations
// live in the database package; Static serves offline analysis.
type Conn interface {
	// AdapterName reports the driver's engine name (e.g. "PostgreSQL").
	AdapterName() string
	// ServerVersion runs the engine's version-reporting query and returns the raw value.
	ServerVersion(ctx context.Context) (string, error)
	// ColumnType returns the declared type of a live column, or "" if it does not exist.
	ColumnType(ctx context.Context, table, column string) (string, error)
	// Exec runs a statement that produces no rows.
	Exec(ctx context.Context, sql string) error
}

// Info is the detected engine family and numeric version.
type Info struct {
	Family  Family
	Version int // 0 when the family does not require a version
}

// FamilyOf maps an adapter name to its family without touching the network.
func FamilyOf(adapterName string) Family {
	switch strings.ToLower(strings.TrimSpace(adapterName)) {
	case "postgresql", "postgres", "postgis", "pgx":
		return PostgreSQL
	case "mysql", "mysql2", "trilogy":
		return MySQL
	case "sqlite", "sqlite3":
		return SQLite
	default:
		return Unknown
	}
}

// RequiresVersion reports whether rules consult the version of this family.
func (f Family) RequiresVersion() bool {
	return f == PostgreSQL
}

// Detect reads the family from the adapter name and, when the family
// requires it, issues exactly one version query.
func Detect(ctx context.Context, conn Conn) (Info, error) {
	family := FamilyOf(conn.AdapterName())
	if !family.RequiresVersion() {
		return Info{Family: family}, nil
	}

	raw, err := conn.ServerVersion(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("%w: querying %s version: %w", ErrDetectFailed, family, err)
	}

	version, err := ParseVersion(family, raw)
	if err != nil {
		return Info{}, err
	}

	return Info{Family: family, Version: version}, nil
}

// ParseVersion converts a reported version into the family's integer form.
// Pure digits are taken as-is; dotted versions ("16.2", "3.45.1") are folded
// into the engine's own numbering convention.
func ParseVersion(family Family, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty version", ErrDetectFailed)
	}

	if n, err := strconv.Atoi(raw); err == nil {
		if family == PostgreSQL && n < pgMajorFactor {
			// bare major such as "16"
			return n * pgMajorFactor, nil
		}

		return n, nil
	}

	// "16.2 (Debian 16.2-1)" style strings carry a suffix
	if i := strings.IndexByte(raw, ' '); i > 0 {
		raw = raw[:i]
	}

	v, err := semver.NewVersion(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: parsing version %q: %w", ErrDetectFailed, raw, err)
	}

	major, minor, patch := int(v.Major()), int(v.Minor()), int(v.Patch())

	switch family {
	case PostgreSQL:
		if major >= pgVersionNewNumbering {
			return major*pgMajorFactor + minor, nil
		}

		return major*pgMajorFactor + minor*pgMinorFactorLegacy + patch, nil
	default:
		return major*sqliteMajorFactor + minor*sqliteMinorFactor + patch, nil
	}
}
