package analyzer

// Outcome is what happened to an evaluated operation.
type Outcome int

const (
	// Allowed means every check passed.
	Allowed Outcome = iota
	// Denied means a rule or custom check aborted the migration.
	Denied
	// Bypassed means no check ran.
	Bypassed
)

// String returns the lowercase label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	case Bypassed:
		return "bypassed"
	default:
		return "unknown"
	}
}

// Color returns an ANSI color code for terminal output.
func (o Outcome) Color() string {
	switch o {
	case Allowed:
		return "\033[32m" // green
	case Denied:
		return "\033[31m" // red
	case Bypassed:
		return "\033[33m" // yellow
	default:
		return "\033[0m" // reset
	}
}

// BypassReason explains why checks were skipped for a session, in priority order.
type BypassReason string

// Bypass reasons, highest priority first.
const (
	NotBypassed    BypassReason = ""
	SafetyAssured  BypassReason = "safety_assured"
	GlobalOverride BypassReason = "global_override"
	SchemaLoad     BypassReason = "schema_load"
	DirectionDown  BypassReason = "direction_down"
	VersionGate    BypassReason = "version_gate"
)
