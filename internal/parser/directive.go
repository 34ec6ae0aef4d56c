package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import "strings"

// Directive comments mark statements as manually verified. A bare directive
// anywhere before a statement covers the whole file; begin and end delimit
// a region.
const (
	DirectiveAssured = "-- safe-migrate:safety-assured"
	DirectiveBegin   = DirectiveAssured + " begin"
	DirectiveEnd     = DirectiveAssured + " end"
)

type directive int

const (
	directiveNone directive = iota
	directiveFile
	directiveBegin
	directiveEnd
)

// leadingDirectives returns the directives found in the comment lines that
// precede the first SQL token of text.
func leadingDirectives(text string) []directive {
	var found []directive

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "--") {
			break
		}

		if d := parseDirective(line); d != directiveNone {
			found = append(found, d)
		}
	}

	return found
}

func parseDirective(line string) directive {
	switch strings.Join(strings.Fields(line), " ") {
	case DirectiveAssured:
		return directiveFile
	case DirectiveBegin:
		return directiveBegin
	case DirectiveEnd:
		return directiveEnd
	default:
		return directiveNone
	}
}
