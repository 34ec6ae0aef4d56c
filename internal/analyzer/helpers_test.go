package analyzer_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/dialect"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

// mockConn is a dialect.Conn whose every call is recorded.
type mockConn struct {
	mock.Mock
}

func (m *mockConn) AdapterName() string {
	return m.Called().String(0)
}

func (m *mockConn) ServerVersion(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockConn) ColumnType(ctx context.Context, table, column string) (string, error) {
	args := m.Called(ctx, table, column)
	return args.String(0), args.Error(1)
}

func (m *mockConn) Exec(ctx context.Context, sql string) error {
	return m.Called(ctx, sql).Error(0)
}

// recorder collects dispatcher activity.
type recorder struct {
	mu         sync.Mutex
	outcomes   map[operation.Kind][]analyzer.Outcome
	detections []dialect.Family
}

func newRecorder() *recorder {
	return &recorder{outcomes: make(map[operation.Kind][]analyzer.Outcome)}
}

func (r *recorder) Operation(kind operation.Kind, outcome analyzer.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcomes[kind] = append(r.outcomes[kind], outcome)
}

func (r *recorder) Detect(family dialect.Family) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.detections = append(r.detections, family)
}

func TestTruncateSQL_shortString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT 1", analyzer.TruncateSQL("SELECT 1", 100))
}

func TestTruncateSQL_exactLength(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT 1", analyzer.TruncateSQL("SELECT 1", 8))
}

func TestTruncateSQL_truncated(t *testing.T) {
	t.Parallel()

	result := analyzer.TruncateSQL("SELECT * FROM very_long_table_name WHERE id = 1", 20)
	assert.Equal(t, "SELECT * FROM ver...", result)
	assert.Len(t, result, 20)
}

func TestQuoteTable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"users"`, analyzer.QuoteTable("users"))
	assert.Equal(t, `"public"."users"`, analyzer.QuoteTable("public.users"))
}

func TestUnsafeMigrationError_banner(t *testing.T) {
	t.Parallel()

	builtin := &analyzer.UnsafeMigrationError{Message: "do not"}
	custom := &analyzer.UnsafeMigrationError{Message: "nope", Custom: true}

	assert.Equal(t, "\n=== Dangerous operation detected! #safe-migrate ===\n\ndo not\n", builtin.Error())
	assert.Equal(t, "\n=== Custom check #safe-migrate ===\n\nnope\n", custom.Error())
	assert.True(t, errors.Is(builtin, analyzer.ErrUnsafeMigration))
	assert.True(t, errors.Is(custom, analyzer.ErrUnsafeMigration))
}
