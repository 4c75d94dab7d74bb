package model

// SessionState is the session guarantor's answer: whether an authenticated
// session exists and, if so, the anti-forgery token scoped to it.
type SessionState struct {
	Authenticated bool
	Token         string
}

// OutcomeKind tags the variants of SubmissionOutcome.
type OutcomeKind int

// Submission outcome variants.
const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeValidationFailed
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidationFailed:
		return "validation_failed"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// SubmissionOutcome is the terminal result of one submission run.
type SubmissionOutcome struct {
	Kind          OutcomeKind
	TransactionID int64
	Field         string
	Message       string
}

// SuccessOutcome marks a confirmed write. The id may be zero when the
// backend answered with a bare success flag and no identifier.
func SuccessOutcome(transactionID int64) SubmissionOutcome {
	return SubmissionOutcome{Kind: OutcomeSuccess, TransactionID: transactionID}
}

// ValidationFailedOutcome marks a draft rejected before any network attempt.
func ValidationFailedOutcome(field, reason string) SubmissionOutcome {
	return SubmissionOutcome{Kind: OutcomeValidationFailed, Field: field, Message: reason}
}

// FailedOutcome marks a submission that exhausted its attempts or hit a
// non-retryable failure.
func FailedOutcome(message string) SubmissionOutcome {
	return SubmissionOutcome{Kind: OutcomeFailed, Message: message}
}
