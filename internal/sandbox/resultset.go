package sandbox

import (
	"reflect"
	"slices"
)

// ResultSet is the captured output of one query execution: column names
// in selection order and rows in the order the engine produced them.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Equivalent reports whether two result sets contain the same ordered
// sequence of rows under the same column names. Equality is structural
// and type-sensitive: the string "7342" never equals the number 7342, and
// set-equal rows in a different order do not match, so a level can make
// ORDER BY or LIMIT part of the answer.
func Equivalent(a, b *ResultSet) bool {
	if a == nil || b == nil {
		return a == b
	}

	if !slices.Equal(a.Columns, b.Columns) {
		return false
	}

	if len(a.Rows) != len(b.Rows) {
		return false
	}

	for i := range a.Rows {
		if !reflect.DeepEqual(a.Rows[i], b.Rows[i]) {
			return false
		}
	}

	return true
}
