package analyzer

import (
	"sync"

	"github.com/aqasim81/safe-migrate/internal/operation"
)

// CustomCheck inspects every evaluated operation in addition to the built-in
// rules. A non-empty return value aborts the migration with that message.
// Checks must not mutate the operation or the session.
type CustomCheck func(op operation.Operation, s *Session) string

// Checks is an append-only list of custom checks. It is filled while the
// process configures itself and only read during evaluation.
type Checks struct {
	mu     sync.RWMutex
	checks []CustomCheck
}

// NewChecks returns an empty check list.
func NewChecks() *Checks {
	return &Checks{}
}

// Register appends a check. There is no way to remove or reorder checks.
func (c *Checks) Register(check CustomCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks = append(c.checks, check)
}

// All returns the checks in registration order.
func (c *Checks) All() []CustomCheck {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]CustomCheck(nil), c.checks...)
}

// Len returns the number of registered checks.
func (c *Checks) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.checks)
}

var defaultChecks = NewChecks() //nolint:gochecknoglobals // process-wide registry, written at startup

// RegisterCheck adds a check to the process-wide list used by dispatchers
// that were not given their own.
func RegisterCheck(check CustomCheck) {
	defaultChecks.Register(check)
}

// DefaultChecks returns the process-wide check list.
func DefaultChecks() *Checks {
	return defaultChecks
}
