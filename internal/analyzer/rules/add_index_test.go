package rules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/analyzer/rules"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

func TestAddIndexRule_ID(t *testing.T) {
	t.Parallel()

	rule := rules.NewAddIndexRule()
	assert.Equal(t, "add-index", rule.ID())
}

func TestAddIndexRule_Check(t *testing.T) {
	t.Parallel()

	wide := []string{"a", "b", "c", "d"}

	tests := []struct {
		name         string
		op           operation.Operation
		session      func() *analyzer.Session
		wantTemplate string
	}{
		{
			name:         "non-concurrent index is denied",
			op:           operation.AddIndex("users", []string{"email"}, operation.Options{}),
			session:      func() *analyzer.Session { return pgSession("160002") },
			wantTemplate: analyzer.MsgAddIndex,
		},
		{
			name:    "concurrent index is allowed",
			op:      operation.AddIndex("users", []string{"email"}, operation.Options{Algorithm: operation.AlgorithmConcurrently}),
			session: func() *analyzer.Session { return pgSession("160002") },
		},
		{
			name:         "four non-unique columns are denied first",
			op:           operation.AddIndex("users", wide, operation.Options{Algorithm: operation.AlgorithmConcurrently}),
			session:      func() *analyzer.Session { return pgSession("160002") },
			wantTemplate: analyzer.MsgAddIndexColumns,
		},
		{
			name:    "four unique columns built concurrently are allowed",
			op:      operation.AddIndex("users", wide, operation.Options{Unique: true, Algorithm: operation.AlgorithmConcurrently}),
			session: func() *analyzer.Session { return pgSession("160002") },
		},
		{
			name:    "non-concurrent index on sqlite is allowed",
			op:      operation.AddIndex("users", []string{"email"}, operation.Options{}),
			session: sqliteSession,
		},
		{
			name:         "wide index on sqlite is still denied",
			op:           operation.AddIndex("users", wide, operation.Options{}),
			session:      sqliteSession,
			wantTemplate: analyzer.MsgAddIndexColumns,
		},
	}

	rule := rules.NewAddIndexRule()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := rule.Check(context.Background(), tt.op, tt.session())
			require.NoError(t, err)
			assert.Equal(t, tt.wantTemplate, v.Template)
		})
	}
}

func TestAddIndexRule_Check_varsRenderColumnList(t *testing.T) {
	t.Parallel()

	op := operation.AddIndex("users", []string{"a", "b", "c", "d"}, operation.Options{Name: "idx_wide"})

	v, err := rules.NewAddIndexRule().Check(context.Background(), op, pgSession("160002"))
	require.NoError(t, err)
	require.True(t, v.Denied())
	assert.Equal(t, "users", v.Vars["table"])
	assert.Equal(t, "[a, b, c, d]", v.Vars["column"])
	assert.Equal(t, ", name: 'idx_wide'", v.Vars["options"])
	assert.Equal(t, `  CREATE INDEX CONCURRENTLY "idx_wide" ON "users" ("a", "b", "c", "d");`, v.Vars["code"])
}

func TestAddIndexRule_Check_codeKeepsExpressionsAndPredicate(t *testing.T) {
	t.Parallel()

	op := operation.AddIndex("public.users", []string{"lower(email)"},
		operation.Options{Unique: true, Using: "hash", Where: "deleted_at IS NULL"})

	v, err := rules.NewAddIndexRule().Check(context.Background(), op, pgSession("160002"))
	require.NoError(t, err)
	assert.Equal(t,
		`  CREATE UNIQUE INDEX CONCURRENTLY ON "public"."users" USING hash (lower(email)) WHERE deleted_at IS NULL;`,
		v.Vars["code"])
}
