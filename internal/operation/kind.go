package operation

import "fmt"

// Kind identifies a schema-mutating operation. The set is closed: a runner
// must translate its own vocabulary into one of these values.
type Kind int

const (
	// KindUnknown is the zero value and never evaluated.
	KindUnknown Kind = iota
	KindCreateTable
	KindDropTable
	KindAddColumn
	KindRemoveColumn
	KindRemoveTimestamps
	KindRenameColumn
	KindRenameTable
	KindChangeTable
	KindChangeColumn
	KindChangeColumnNull
	KindChangeColumnDefault
	KindAddIndex
	KindRemoveIndex
	KindAddReference
	KindAddBelongsTo
	KindExecute
)

var kindNames = map[Kind]string{ //nolint:gochecknoglobals // immutable lookup table
	KindCreateTable:         "create_table",
	KindDropTable:           "drop_table",
	KindAddColumn:           "add_column",
	KindRemoveColumn:        "remove_column",
	KindRemoveTimestamps:    "remove_timestamps",
	KindRenameColumn:        "rename_column",
	KindRenameTable:         "rename_table",
	KindChangeTable:         "change_table",
	KindChangeColumn:        "change_column",
	KindChangeColumnNull:    "change_column_null",
	KindChangeColumnDefault: "change_column_default",
	KindAddIndex:            "add_index",
	KindRemoveIndex:         "remove_index",
	KindAddReference:        "add_reference",
	KindAddBelongsTo:        "add_belongs_to",
	KindExecute:             "execute",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindNames))
	for k := KindCreateTable; k <= KindExecute; k++ {
		kinds = append(kinds, k)
	}

	return kinds
}

// ParseKind maps a snake_case name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}

	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}
