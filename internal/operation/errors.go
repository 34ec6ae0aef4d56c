package operation

import "errors"

// ErrUnknownKind indicates an operation name outside the closed Kind set.
var ErrUnknownKind = errors.New("unknown operation kind")
