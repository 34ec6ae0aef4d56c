package migration

import "sort"

// Sort returns a new slice of migrations sorted by Ordinal, so that "V9"
// runs before "V10". Versions with the same ordinal fall back to
// lexicographic order. The sort is stable to preserve insertion order for
// equal versions.
func Sort(migrations []Migration) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Ordinal(), sorted[j].Ordinal()
		if a != b {
			return a < b
		}

		return sorted[i].Version < sorted[j].Version
	})

	return sorted
}

// Reverse returns a new slice with the migrations in the opposite order.
func Reverse(migrations []Migration) []Migration {
	reversed := make([]Migration, len(migrations))
	for i, m := range migrations {
		reversed[len(migrations)-1-i] = m
	}

	return reversed
}
