// Package report maps submission outcomes onto UI states. It exists to keep
// presentation decisions out of the orchestrator; there is no business
// logic here.
package report

import (
	"fmt"

	"github.com/ledgerline/ledgerline/internal/model"
)

// ViewKind tags the two surfaces the form can land on.
type ViewKind int

// UI surfaces.
const (
	// ShowForm keeps the form visible, optionally with an inline error
	// banner. The draft is preserved so the user loses no input.
	ShowForm ViewKind = iota
	// ShowSuccess replaces the form with the confirmation screen.
	ShowSuccess
)

// UIState is what the presentation layer renders after a submission run.
type UIState struct {
	Kind          ViewKind
	ErrorMessage  string
	TransactionID int64
}

// Render maps an outcome to its UI state.
func Render(outcome model.SubmissionOutcome) UIState {
	switch outcome.Kind {
	case model.OutcomeSuccess:
		return UIState{Kind: ShowSuccess, TransactionID: outcome.TransactionID}
	case model.OutcomeValidationFailed:
		return UIState{Kind: ShowForm, ErrorMessage: fmt.Sprintf("%s: %s", outcome.Field, outcome.Message)}
	default:
		return UIState{Kind: ShowForm, ErrorMessage: outcome.Message}
	}
}
