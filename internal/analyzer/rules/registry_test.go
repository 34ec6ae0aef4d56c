package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/safe-migrate/internal/analyzer/rules"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

func TestNewDefaultRegistry_registersAllRules(t *testing.T) {
	t.Parallel()

	r := rules.NewDefaultRegistry()
	require.NotNil(t, r)
	assert.Len(t, r.Rules(), 10)
}

func TestNewDefaultRegistry_uniqueIDs(t *testing.T) {
	t.Parallel()

	r := rules.NewDefaultRegistry()
	seen := make(map[string]bool)

	for _, rule := range r.Rules() {
		id := rule.ID()
		assert.False(t, seen[id], "duplicate rule ID: %s", id)
		seen[id] = true
	}
}

func TestNewDefaultRegistry_kindCoverage(t *testing.T) {
	t.Parallel()

	r := rules.NewDefaultRegistry()

	covered := []operation.Kind{
		operation.KindRemoveColumn, operation.KindRemoveTimestamps, operation.KindChangeTable,
		operation.KindRenameTable, operation.KindRenameColumn, operation.KindAddIndex,
		operation.KindAddColumn, operation.KindChangeColumn, operation.KindCreateTable,
		operation.KindAddReference, operation.KindAddBelongsTo, operation.KindExecute,
		operation.KindChangeColumnNull,
	}
	for _, k := range covered {
		_, ok := r.Lookup(k)
		assert.True(t, ok, "no rule for %s", k)
	}

	for _, k := range []operation.Kind{operation.KindDropTable, operation.KindRemoveIndex, operation.KindChangeColumnDefault} {
		_, ok := r.Lookup(k)
		assert.False(t, ok, "unexpected rule for %s", k)
	}
}
