package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Migration represents a single database migration loaded from disk.
type Migration struct {
	Version  string // "001" or "20240101120000", extracted from filename
	Name     string // "create_users", extracted from filename
	UpSQL    string // Contents of the .up.sql file
	DownSQL  string // Contents of the .down.sql file (empty if none)
	Checksum string // SHA-256 hex digest of UpSQL
	FilePath string // Path to the .up.sql file
}

// Ordinal returns the numeric value of Version, which is what the
// start_after gate compares against. It returns 0 if Version is not numeric.
func (m Migration) Ordinal() int64 {
	n, err := strconv.ParseInt(m.Version, 10, 64)
	if err != nil {
		return 0
	}

	return n
}

// HasDown reports whether the migration can be rolled back.
func (m Migration) HasDown() bool {
	return m.DownSQL != ""
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
