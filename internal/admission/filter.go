// Package admission implements the pre-execution screen for submitted
// query text. It is a textual heuristic, not a parser: a query containing
// SELECT is allowed through even alongside a blocked keyword, because the
// sandbox bounds any damage to a throwaway dataset.
package admission

import (
	"regexp"
	"strings"
)

// Whole-word matching only: INSERT inside an identifier must not trip the
// filter.
var blockedPattern = regexp.MustCompile(`(?i)\b(DROP|DELETE|INSERT|UPDATE|ALTER|CREATE|TRUNCATE)\b`)

// Decision is the outcome of admitting one query text
type Decision struct {
	Allowed bool
	Reason  string
}

// Admit screens raw query text before any execution. It is a pure
// function of its input.
func Admit(queryText string) Decision {
	if blockedPattern.MatchString(queryText) &&
		!strings.Contains(strings.ToLower(queryText), "select") {
		return Decision{Allowed: false, Reason: "Unauthorized command detected"}
	}

	return Decision{Allowed: true}
}
