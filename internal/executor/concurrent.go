package executor

import "github.com/aqasim81/safe-migrate/internal/parser"

// runsOutsideTransaction reports whether any statement, such as CREATE
// INDEX CONCURRENTLY, cannot run inside a transaction block. Such a
// migration runs statement by statement on the locked connection.
func runsOutsideTransaction(stmts []parser.Statement) bool {
	for _, s := range stmts {
		if s.Concurrent {
			return true
		}
	}

	return false
}
