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

func TestAddReferenceRule_Check(t *testing.T) {
	t.Parallel()

	no := false

	tests := []struct {
		name   string
		op     operation.Operation
		denied bool
	}{
		{"implicit index is denied", operation.AddReference("comments", "post", operation.Options{}), true},
		{"belongs_to alias is denied", operation.AddBelongsTo("comments", "post", operation.Options{}), true},
		{"no index is allowed", operation.AddReference("comments", "post", operation.Options{Index: &no}), false},
		{
			name:   "concurrent index is allowed",
			op:     operation.AddReference("comments", "post", operation.Options{Algorithm: operation.AlgorithmConcurrently}),
			denied: false,
		},
	}

	rule := rules.NewAddReferenceRule()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := rule.Check(context.Background(), tt.op, pgSession("160002"))
			require.NoError(t, err)
			assert.Equal(t, tt.denied, v.Denied())
		})
	}
}

func TestAddReferenceRule_Check_polymorphicColumns(t *testing.T) {
	t.Parallel()

	op := operation.AddReference("comments", "commentable", operation.Options{Polymorphic: true})

	v, err := rules.NewAddReferenceRule().Check(context.Background(), op, pgSession("160002"))
	require.NoError(t, err)
	assert.Equal(t, analyzer.MsgAddReference, v.Template)
	assert.Equal(t, "[commentable_type, commentable_id]", v.Vars["column"])
	assert.Equal(t, "add_reference", v.Vars["command"])
	assert.Equal(t, ", polymorphic: true", v.Vars["options"])
	assert.Equal(t, `  ALTER TABLE "comments" ADD COLUMN "commentable_type" varchar;
  ALTER TABLE "comments" ADD COLUMN "commentable_id" bigint;
  CREATE INDEX CONCURRENTLY ON "comments" ("commentable_type", "commentable_id");`, v.Vars["code"])
}

func TestAddReferenceRule_Check_newTable_isAllowed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := analyzer.New(analyzer.WithRegistry(rules.NewDefaultRegistry()), analyzer.WithChecks(analyzer.NewChecks()))
	s := pgSession("160002")

	require.NoError(t, d.Evaluate(ctx, s, operation.CreateTable("comments", operation.Options{})))
	require.NoError(t, d.After(ctx, s, operation.CreateTable("comments", operation.Options{})))

	v, err := rules.NewAddReferenceRule().Check(ctx, operation.AddReference("comments", "post", operation.Options{}), s)
	require.NoError(t, err)
	assert.False(t, v.Denied())
}

func TestAddReferenceRule_Check_sqlite_isAllowed(t *testing.T) {
	t.Parallel()

	v, err := rules.NewAddReferenceRule().Check(context.Background(),
		operation.AddReference("comments", "post", operation.Options{}), sqliteSession())
	require.NoError(t, err)
	assert.False(t, v.Denied())
}
