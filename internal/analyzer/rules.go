package analyzer

import (
	"context"

	"github.com/aqasim81/safe-migrate/internal/operation"
)

// Vars are the named values substituted into a message template.
type Vars map[string]string

// Verdict is the outcome of a rule: allowed, or denied with a template key.
type Verdict struct {
	Template string
	Vars     Vars
}

// Allow returns the allowing verdict.
func Allow() Verdict { return Verdict{} }

// Deny returns a verdict that aborts the migration with the given template.
func Deny(template string, vars Vars) Verdict {
	return Verdict{Template: template, Vars: vars}
}

// Denied reports whether the verdict aborts the migration.
func (v Verdict) Denied() bool { return v.Template != "" }

// Rule is the interface that all operation classifiers must implement.
type Rule interface {
	// ID returns a unique kebab-case identifier for this rule.
	ID() string
	// Kinds returns the operation kinds this rule classifies.
	Kinds() []operation.Kind
	// Check classifies a single operation. Errors are reserved for failures
	// to gather information (dialect detection, column lookup), never for denials.
	Check(ctx context.Context, op operation.Operation, s *Session) (Verdict, error)
}

// Registry maps operation kinds to rules.
type Registry struct {
	byKind map[operation.Kind]Rule
	rules  []Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKind: make(map[operation.Kind]Rule)}
}

// Register adds a rule for each of its kinds. A later rule for the same kind
// replaces the earlier one.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)

	for _, k := range rule.Kinds() {
		r.byKind[k] = rule
	}
}

// Lookup returns the rule for a kind.
func (r *Registry) Lookup(kind operation.Kind) (Rule, bool) {
	rule, ok := r.byKind[kind]
	return rule, ok
}

// Rules returns all registered rules in registration order.
func (r *Registry) Rules() []Rule {
	return r.rules
}
