package analyzer

import "errors"

// ErrUnsafeMigration matches every denial raised by a rule or custom check.
var ErrUnsafeMigration = errors.New("unsafe migration")

// ErrUnknownPlaceholder indicates a template references a variable that was not supplied.
var ErrUnknownPlaceholder = errors.New("unknown template placeholder")
