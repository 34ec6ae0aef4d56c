package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/migration"
)

// Rollback reverses the most recent steps applied migrations, newest first,
// by running their down SQL.
func (e *Executor) Rollback(ctx context.Context, migrations []migration.Migration, steps int) error {
	if steps < 1 {
		return ErrInvalidSteps
	}

	return e.withLock(ctx, func(conn runConn) error {
		targets, err := e.appliedNewestFirst(ctx, migrations)
		if err != nil {
			return err
		}

		if len(targets) > steps {
			targets = targets[:steps]
		}

		return e.rollbackAll(ctx, conn, targets)
	})
}

// RollbackToVersion reverses every applied migration newer than version.
// The migration at version itself stays applied.
func (e *Executor) RollbackToVersion(ctx context.Context, migrations []migration.Migration, version string) error {
	target := migration.Migration{Version: version}.Ordinal()

	return e.withLock(ctx, func(conn runConn) error {
		applied, err := e.appliedNewestFirst(ctx, migrations)
		if err != nil {
			return err
		}

		var targets []migration.Migration

		for _, m := range applied {
			if m.Ordinal() > target {
				targets = append(targets, m)
			}
		}

		return e.rollbackAll(ctx, conn, targets)
	})
}

// appliedNewestFirst matches the tracker's applied versions to the files on
// disk and orders them newest first.
func (e *Executor) appliedNewestFirst(ctx context.Context, migrations []migration.Migration) ([]migration.Migration, error) {
	applied, err := e.tracker.GetApplied(ctx)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]migration.Migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	matched := make([]migration.Migration, 0, len(applied))

	for _, a := range applied {
		m, ok := byVersion[a.Version]
		if !ok {
			return nil, fmt.Errorf("migration %s (%s): %w", a.Version, a.Filename, ErrMigrationFileMissing)
		}

		matched = append(matched, m)
	}

	return migration.Reverse(migration.Sort(matched)), nil
}

func (e *Executor) rollbackAll(ctx context.Context, conn runConn, targets []migration.Migration) error {
	for i := range targets {
		if err := e.rollbackOne(ctx, conn, &targets[i]); err != nil {
			return err
		}
	}

	return nil
}

func (e *Executor) rollbackOne(ctx context.Context, conn runConn, m *migration.Migration) error {
	if !m.HasDown() {
		return fmt.Errorf("migration %s: %w", m.Version, ErrNoDownMigration)
	}

	if e.dryRun {
		return e.check(ctx, conn, m, analyzer.Down)
	}

	e.fireProgress(ProgressEvent{Migration: m, Direction: analyzer.Down, Status: StatusStarting})

	start := time.Now()
	execErr := e.execMigration(ctx, conn, m, analyzer.Down)
	duration := time.Since(start)

	if execErr != nil {
		e.fireProgress(ProgressEvent{
			Migration: m,
			Direction: analyzer.Down,
			Status:    StatusFailed,
			Duration:  duration,
			Error:     execErr,
		})

		return fmt.Errorf("rolling back migration %s: %w", m.Version, execErr)
	}

	if err := e.tracker.RecordRolledBack(ctx, m.Version); err != nil {
		return err
	}

	e.log.WithFields(logrus.Fields{
		"version":  m.Version,
		"name":     m.Name,
		"duration": duration,
	}).Info("migration rolled back")

	e.fireProgress(ProgressEvent{
		Migration: m,
		Direction: analyzer.Down,
		Status:    StatusCompleted,
		Duration:  duration,
	})

	return nil
}
