package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/aqasim81/safe-migrate/internal/dialect"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

// Settings is the process-wide configuration of a Dispatcher. It is copied
// on construction and never changed by evaluation.
type Settings struct {
	// SafetyAssured disables every check (SAFETY_ASSURED).
	SafetyAssured bool
	// StartAfter skips migrations whose ordinal is at or below it.
	StartAfter int64
	// AutoAnalyze refreshes planner statistics after an index is added.
	AutoAnalyze bool
	// Messages override the built-in templates by key.
	Messages map[string]string
}

// Recorder observes dispatcher activity, typically for metrics.
type Recorder interface {
	Operation(kind operation.Kind, outcome Outcome)
	Detect(family dialect.Family)
}

type nopRecorder struct{}

func (nopRecorder) Operation(operation.Kind, Outcome) {}
func (nopRecorder) Detect(dialect.Family)             {}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// Dispatcher is the single entry point a migration runner calls for every
// attempted operation.
type Dispatcher struct {
	registry *Registry
	checks   *Checks
	settings Settings
	messages Messages
	log      logrus.FieldLogger
	recorder Recorder
}

// New creates a new Dispatcher with the given options.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: NewRegistry(),
		checks:   DefaultChecks(),
		log:      logrus.StandardLogger(),
		recorder: nopRecorder{},
	}

	for _, opt := range opts {
		opt(d)
	}

	d.messages = DefaultMessages().Merge(d.settings.Messages)

	return d
}

// WithRegistry sets the rule registry.
func WithRegistry(r *Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// WithChecks sets the custom check list instead of the process-wide one.
func WithChecks(c *Checks) Option {
	return func(d *Dispatcher) { d.checks = c }
}

// WithSettings sets the dispatcher settings.
func WithSettings(s Settings) Option {
	return func(d *Dispatcher) {
		s.Messages = Messages(s.Messages).Merge(nil)
		d.settings = s
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// Bypassed returns the first reason, in priority order, for which no check
// runs in this session.
func (d *Dispatcher) Bypassed(s *Session) BypassReason {
	switch {
	case s.assured:
		return SafetyAssured
	case d.settings.SafetyAssured:
		return GlobalOverride
	case s.schemaLoad:
		return SchemaLoad
	case s.direction == Down:
		return DirectionDown
	case s.version > 0 && s.version <= d.settings.StartAfter:
		return VersionGate
	default:
		return NotBypassed
	}
}

// Evaluate classifies op. A nil error means the runner may proceed. Denials
// are returned as *UnsafeMigrationError; dialect detection failures wrap
// dialect.ErrDetectFailed. Either way the migration must stop.
func (d *Dispatcher) Evaluate(ctx context.Context, s *Session, op operation.Operation) error {
	log := d.log.WithFields(logrus.Fields{"kind": op.Kind.String(), "table": op.Table})

	if reason := d.Bypassed(s); reason != NotBypassed {
		log.WithField("reason", string(reason)).Debug("checks bypassed")
		d.recorder.Operation(op.Kind, Bypassed)

		return nil
	}

	alreadyDetected := s.detected()

	violation, err := d.checkRule(ctx, s, op)

	if !alreadyDetected && s.detected() {
		d.recorder.Detect(s.info.Family)
	}

	if err != nil {
		return err
	}

	if custom := d.runChecks(op, s, log); violation == nil {
		violation = custom
	}

	if violation != nil {
		log.WithFields(logrus.Fields{
			"template": violation.Template,
			"custom":   violation.Custom,
		}).Warn("unsafe operation denied")
		d.recorder.Operation(op.Kind, Denied)

		return violation
	}

	d.recorder.Operation(op.Kind, Allowed)

	return nil
}

func (d *Dispatcher) checkRule(ctx context.Context, s *Session, op operation.Operation) (*UnsafeMigrationError, error) {
	rule, ok := d.registry.Lookup(op.Kind)
	if !ok {
		return nil, nil //nolint:nilnil // no rule means allowed
	}

	verdict, err := rule.Check(ctx, op, s)
	if err != nil {
		return nil, fmt.Errorf("checking %s on %s: %w", op.Kind, op.Table, err)
	}

	if !verdict.Denied() {
		return nil, nil //nolint:nilnil // allowed
	}

	msg, err := d.messages.Render(verdict.Template, verdict.Vars)
	if err != nil {
		return nil, fmt.Errorf("rendering %s message: %w", verdict.Template, err)
	}

	return &UnsafeMigrationError{
		Op:       op,
		Template: verdict.Template,
		Vars:     verdict.Vars,
		Message:  msg,
	}, nil
}

// runChecks runs every custom check and returns the first denial. Later
// denials are logged only.
func (d *Dispatcher) runChecks(op operation.Operation, s *Session, log logrus.FieldLogger) *UnsafeMigrationError {
	var first *UnsafeMigrationError

	for _, check := range d.checks.All() {
		msg := check(op, s)
		if msg == "" {
			continue
		}

		if first != nil {
			log.WithField("message", msg).Warn("additional custom check denial")
			continue
		}

		first = &UnsafeMigrationError{Op: op, Message: msg, Custom: true}
	}

	return first
}

// After must be called once an allowed operation has actually executed. It
// records new tables and, when enabled, refreshes planner statistics after
// an index build on PostgreSQL.
func (d *Dispatcher) After(ctx context.Context, s *Session, op operation.Operation) error {
	if op.Kind == operation.KindCreateTable {
		s.addNewTable(op.Table)
	}

	if !d.settings.AutoAnalyze || s.direction != Up || op.Kind != operation.KindAddIndex || !s.IsPostgres() {
		return nil
	}

	stmt := "ANALYZE VERBOSE " + QuoteTable(op.Table)

	d.log.WithField("table", op.Table).Debug("refreshing statistics")

	if err := s.conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("refreshing statistics for %s: %w", op.Table, err)
	}

	return nil
}

// QuoteTable quotes a possibly schema-qualified table name.
func QuoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}
