package models

// Verdict classifies the outcome of one evaluation call
type Verdict string

const (
	VerdictCorrect       Verdict = "correct"
	VerdictMismatch      Verdict = "mismatch"
	VerdictRejected      Verdict = "rejected"
	VerdictQueryError    Verdict = "query_error"
	VerdictInternalError Verdict = "internal_error"
)

// IsCorrect returns true when the submission matched the reference result
func (v Verdict) IsCorrect() bool {
	return v == VerdictCorrect
}

// IsUserFacing returns true for verdicts caused by the submission itself,
// as opposed to server-side defects
func (v Verdict) IsUserFacing() bool {
	return v == VerdictCorrect || v == VerdictMismatch ||
		v == VerdictRejected || v == VerdictQueryError
}

// Evaluation is the transient result of one evaluation call.
// UnlockCode is set only when Verdict is Correct; Message is set on all
// other verdicts and never reveals the reference query or seed data.
type Evaluation struct {
	Verdict    Verdict
	UnlockCode string
	Message    string
}
