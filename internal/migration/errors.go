package migration

import "errors"

// ErrDuplicateVersion is returned when two up files share a version. The
// tracking table is keyed by version, so only one of them could ever be recorded.
var ErrDuplicateVersion = errors.New("duplicate migration version")
