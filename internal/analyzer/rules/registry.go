package rules

import "github.com/aqasim81/safe-migrate/internal/analyzer"

// NewDefaultRegistry returns a Registry with all built-in rules.
func NewDefaultRegistry() *analyzer.Registry {
	r := analyzer.NewRegistry()
	r.Register(NewRemoveColumnRule())
	r.Register(NewChangeTableRule())
	r.Register(NewRenameRule())
	r.Register(NewAddIndexRule())
	r.Register(NewAddColumnRule())
	r.Register(NewChangeColumnRule())
	r.Register(NewCreateTableRule())
	r.Register(NewAddReferenceRule())
	r.Register(NewExecuteRule())
	r.Register(NewChangeColumnNullRule())

	return r
}
