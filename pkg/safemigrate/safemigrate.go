// Package safemigrate is the public surface for projects that build their
// own migrate binary with extra checks. Register checks from main (or an
// init function) before calling Execute.
//
//	func main() {
//		safemigrate.RegisterCheck(func(op safemigrate.Operation, _ *safemigrate.Session) string {
//			if op.Kind == safemigrate.KindDropTable {
//				return "drop tables in a dedicated release"
//			}
//			return ""
//		})
//		safemigrate.Execute()
//	}
package safemigrate

import (
	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/cli"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

// Re-export the types a custom check works with.

// Operation is one schema-mutating step attempted by a migration.
type Operation = operation.Operation

// Options holds the optional arguments of an Operation.
type Options = operation.Options

// Kind identifies the operation.
type Kind = operation.Kind

// Session is the per-migration state a check may read.
type Session = analyzer.Session

// Direction is the direction a migration runs in.
type Direction = analyzer.Direction

// CustomCheck inspects every evaluated operation after the built-in rules.
// A non-empty return value stops the migration with that message.
type CustomCheck = analyzer.CustomCheck

// UnsafeMigrationError is returned when a rule or a check denies an operation.
type UnsafeMigrationError = analyzer.UnsafeMigrationError

const (
	KindCreateTable         = operation.KindCreateTable
	KindDropTable           = operation.KindDropTable
	KindAddColumn           = operation.KindAddColumn
	KindRemoveColumn        = operation.KindRemoveColumn
	KindRemoveTimestamps    = operation.KindRemoveTimestamps
	KindRenameColumn        = operation.KindRenameColumn
	KindRenameTable         = operation.KindRenameTable
	KindChangeTable         = operation.KindChangeTable
	KindChangeColumn        = operation.KindChangeColumn
	KindChangeColumnNull    = operation.KindChangeColumnNull
	KindChangeColumnDefault = operation.KindChangeColumnDefault
	KindAddIndex            = operation.KindAddIndex
	KindRemoveIndex         = operation.KindRemoveIndex
	KindAddReference        = operation.KindAddReference
	KindAddBelongsTo        = operation.KindAddBelongsTo
	KindExecute             = operation.KindExecute
)

const (
	Up   = analyzer.Up
	Down = analyzer.Down
)

// RegisterCheck adds a check to the process-wide list. Every command that
// evaluates migrations (analyze, apply, rollback) runs it.
func RegisterCheck(check CustomCheck) { analyzer.RegisterCheck(check) }

// Execute runs the migrate command line and exits non-zero on failure.
func Execute() { cli.Execute() }
