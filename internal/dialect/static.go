package dialect

import (
	"context"
	"sync"
)

// Static is an offline Conn with a fixed family and version. It knows no live
// columns and records statements passed to Exec instead of sending them.
type Static struct {
	Adapter string
	Version string

	mu       sync.Mutex
	executed []string
}

// NewStatic returns a Static connection reporting the given adapter and version.
func NewStatic(adapter, version string) *Static {
	return &Static{Adapter: adapter, Version: version}
}

// AdapterName implements Conn.
func (s *Static) AdapterName() string { return s.Adapter }

// ServerVersion implements Conn.
func (s *Static) ServerVersion(_ context.Context) (string, error) {
	return s.Version, nil
}

// ColumnType implements Conn. Offline there is no live schema, so every
// lookup reports a missing column.
func (s *Static) ColumnType(_ context.Context, _, _ string) (string, error) {
	return "", nil
}

// Exec implements Conn.
func (s *Static) Exec(_ context.Context, sql string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.executed = append(s.executed, sql)

	return nil
}

// Executed returns the statements recorded by Exec.
func (s *Static) Executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.executed...)
}

// DryRun wraps conn so that version lookups and column lookups still reach it but
// Exec does nothing.
func DryRun(conn Conn) Conn {
	return dryRun{conn}
}

type dryRun struct {
	Conn
}

func (dryRun) Exec(context.Context, string) error { return nil }
