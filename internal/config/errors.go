package config

import "errors"

// ErrNegativeStartAfter indicates a start_after below zero.
var ErrNegativeStartAfter = errors.New("start_after must not be negative")
