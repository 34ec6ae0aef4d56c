package analyzer

import (
	"context"
	"strings"

	"github.com/aqasim81/safe-migrate/internal/dialect"
)

// Direction is the way a migration is being run.
type Direction int

const (
	// Up applies a migration.
	Up Direction = iota
	// Down reverts a migration.
	Down
)

// String returns "up" or "down".
func (d Direction) String() string {
	if d == Down {
		return "down"
	}

	return "up"
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMigrationName sets the migration name used in remediation messages.
func WithMigrationName(name string) SessionOption {
	return func(s *Session) { s.name = name }
}

// WithSchemaLoad marks the session as a bulk schema dump/load, which is never checked.
func WithSchemaLoad(b bool) SessionOption {
	return func(s *Session) { s.schemaLoad = b }
}

// Session is the state of one migration run. It must not be shared between
// runs or used from more than one goroutine.
type Session struct {
	conn       dialect.Conn
	direction  Direction
	version    int64
	name       string
	schemaLoad bool
	assured    bool
	newTables  map[string]struct{}
	info       *dialect.Info
}

// NewSession starts the state for one migration run. version is the
// migration ordinal compared against the version gate; 0 means unknown.
func NewSession(conn dialect.Conn, direction Direction, version int64, opts ...SessionOption) *Session {
	s := &Session{
		conn:      conn,
		direction: direction,
		version:   version,
		newTables: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Direction returns the run direction.
func (s *Session) Direction() Direction { return s.direction }

// Version returns the migration ordinal.
func (s *Session) Version() int64 { return s.version }

// MigrationName returns the migration name, if known.
func (s *Session) MigrationName() string { return s.name }

// Assured reports whether a safety-assured block is active.
func (s *Session) Assured() bool { return s.assured }

// SafetyAssured runs fn with checks bypassed. The previous state is restored
// when fn returns, errors or panics, so blocks nest.
func (s *Session) SafetyAssured(fn func() error) error {
	prev := s.assured
	s.assured = true

	defer func() { s.assured = prev }()

	return fn()
}

// IsNewTable reports whether table was created earlier in this run. A table
// in the default public schema matches with or without the qualifier.
func (s *Session) IsNewTable(table string) bool {
	_, ok := s.newTables[tableKey(table)]
	return ok
}

// NewTables returns the tables created earlier in this run.
func (s *Session) NewTables() []string {
	tables := make([]string, 0, len(s.newTables))
	for t := range s.newTables {
		tables = append(tables, t)
	}

	return tables
}

func (s *Session) addNewTable(table string) {
	s.newTables[tableKey(table)] = struct{}{}
}

func tableKey(table string) string {
	return strings.TrimPrefix(table, "public.")
}

// Dialect returns the engine family and version, probing the connection on
// first use only.
func (s *Session) Dialect(ctx context.Context) (dialect.Info, error) {
	if s.info != nil {
		return *s.info, nil
	}

	info, err := dialect.Detect(ctx, s.conn)
	if err != nil {
		return dialect.Info{}, err
	}

	s.info = &info

	return info, nil
}

// IsPostgres reports whether the connection is PostgreSQL. The family comes
// from the adapter name, so no query is issued.
func (s *Session) IsPostgres() bool {
	return dialect.FamilyOf(s.conn.AdapterName()) == dialect.PostgreSQL
}

// ColumnType looks up the declared type of a live column.
func (s *Session) ColumnType(ctx context.Context, table, column string) (string, error) {
	return s.conn.ColumnType(ctx, table, column)
}

func (s *Session) detected() bool {
	return s.info != nil
}
