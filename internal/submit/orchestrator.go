// Package submit drives the end-to-end transaction submission attempt:
// validate, secure a session, write, and retry within a fixed bound when
// the failure is session or token related.
package submit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ledgerline/ledgerline/internal/api"
	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/events"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/validate"
)

// maxAttempts bounds the whole run: the first attempt plus two retries.
// The counter advances when a session cycle starts, so a dead network
// during session probing is bounded the same way a rejected write is.
const maxAttempts = 3

// SessionEnsurer secures a session and anti-forgery token before a write.
type SessionEnsurer interface {
	EnsureFreshSession(ctx context.Context, forceRefresh bool) (model.SessionState, error)
}

// Writer performs the transaction write.
type Writer interface {
	CreateTransaction(ctx context.Context, payload api.TransactionPayload, token string) (*api.CreatedTransaction, error)
}

// DraftStore clears the locally autosaved draft after a confirmed write.
type DraftStore interface {
	ClearDraft(ctx context.Context, name string) error
}

// Config wires the orchestrator's collaborators. Session and Writer are
// required; Drafts and Events may be nil when those side effects are not
// wanted. Zero delays take the defaults (300ms between retries, 500ms
// before the event); a negative EventDelay publishes immediately.
type Config struct {
	Session    SessionEnsurer
	Writer     Writer
	Drafts     DraftStore
	DraftName  string
	Events     events.Publisher
	Logger     *slog.Logger
	RetryDelay time.Duration
	EventDelay time.Duration
}

// Orchestrator runs one submission at a time through an explicit state
// machine. Collaborators are injected so tests can run the whole protocol
// against fakes.
type Orchestrator struct {
	session    SessionEnsurer
	writer     Writer
	drafts     DraftStore
	draftName  string
	events     events.Publisher
	logger     *slog.Logger
	retryDelay time.Duration
	eventDelay time.Duration
	inFlight   atomic.Bool
}

// NewOrchestrator creates an orchestrator from the given config.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 300 * time.Millisecond
	}
	if cfg.EventDelay < 0 {
		cfg.EventDelay = 0
	} else if cfg.EventDelay == 0 {
		cfg.EventDelay = 500 * time.Millisecond
	}
	return &Orchestrator{
		session:    cfg.Session,
		writer:     cfg.Writer,
		drafts:     cfg.Drafts,
		draftName:  cfg.DraftName,
		events:     cfg.Events,
		logger:     cfg.Logger,
		retryDelay: cfg.RetryDelay,
		eventDelay: cfg.EventDelay,
	}
}

// state tags the orchestrator's position in one submission run.
type state int

const (
	stateValidating state = iota
	stateEnsuringSession
	stateWriting
	stateRetrying
	stateTerminal
)

// run carries the mutable state of one submission attempt cycle.
type run struct {
	draft        *model.TransactionDraft
	payload      api.TransactionPayload
	attempt      int
	token        string
	forceRefresh bool
	outcome      model.SubmissionOutcome
}

// Submit runs the full protocol for one draft and returns the terminal
// outcome. Only one run may be active per orchestrator; a second concurrent
// call fails immediately instead of risking a duplicate write.
func (o *Orchestrator) Submit(ctx context.Context, draft *model.TransactionDraft) model.SubmissionOutcome {
	if !o.inFlight.CompareAndSwap(false, true) {
		return model.FailedOutcome("a submission is already in progress")
	}
	defer o.inFlight.Store(false)

	r := &run{draft: draft}
	for s := stateValidating; s != stateTerminal; {
		s = o.step(ctx, s, r)
	}
	return r.outcome
}

// step is the single transition function of the state machine.
func (o *Orchestrator) step(ctx context.Context, s state, r *run) state {
	switch s {
	case stateValidating:
		if ferr := validate.Draft(r.draft); ferr != nil {
			r.outcome = model.ValidationFailedOutcome(ferr.Field, ferr.Reason)
			return stateTerminal
		}
		r.payload = api.PayloadFromDraft(r.draft)
		return stateEnsuringSession

	case stateEnsuringSession:
		r.attempt++
		sess, err := o.session.EnsureFreshSession(ctx, r.forceRefresh)
		switch {
		case err == nil && !sess.Authenticated:
			// No write without a session.
			r.outcome = model.FailedOutcome("your session could not be restored; please sign in again")
			return stateTerminal
		case err == nil:
			r.token = sess.Token
			return stateWriting
		case errors.Is(err, api.ErrEmptyToken):
			r.outcome = model.FailedOutcome("the server did not issue a security token; please retry later")
			return stateTerminal
		case common.IsRetryable(err) && r.attempt < maxAttempts:
			o.logger.Warn("session check unreachable, will retry",
				"attempt", r.attempt, "max_attempts", maxAttempts, "error", err)
			return stateRetrying
		case common.IsRetryable(err):
			r.outcome = model.FailedOutcome("could not reach the server; check your connection and try again")
			return stateTerminal
		default:
			r.outcome = model.FailedOutcome(common.Message(err))
			return stateTerminal
		}

	case stateWriting:
		created, err := o.writer.CreateTransaction(ctx, r.payload, r.token)
		if err == nil {
			o.finalize(ctx, r, created)
			r.outcome = model.SuccessOutcome(created.ID)
			return stateTerminal
		}

		var werr *api.WriteError
		switch {
		case errors.As(err, &werr) && werr.SecurityTokenRelated() && r.attempt < maxAttempts:
			o.logger.Warn("write rejected for stale session or token, will retry",
				"attempt", r.attempt, "max_attempts", maxAttempts, "status", werr.StatusCode)
			return stateRetrying
		case errors.As(err, &werr) && werr.SecurityTokenRelated():
			r.outcome = model.FailedOutcome("the session could not be secured; please retry")
			return stateTerminal
		case errors.As(err, &werr):
			// Definitive server rejection: not retried.
			r.outcome = model.FailedOutcome(werr.UserMessage())
			return stateTerminal
		case common.IsRetryable(err) && r.attempt < maxAttempts:
			o.logger.Warn("write unreachable, will retry",
				"attempt", r.attempt, "max_attempts", maxAttempts, "error", err)
			return stateRetrying
		case common.IsRetryable(err):
			r.outcome = model.FailedOutcome("could not reach the server; check your connection and try again")
			return stateTerminal
		default:
			r.outcome = model.FailedOutcome(common.Message(err))
			return stateTerminal
		}

	case stateRetrying:
		// Short fixed pause so a transient outage is not hammered.
		select {
		case <-ctx.Done():
			r.outcome = model.FailedOutcome("submission canceled")
			return stateTerminal
		case <-time.After(o.retryDelay):
		}
		r.forceRefresh = true
		return stateEnsuringSession
	}

	r.outcome = model.FailedOutcome("submission ended in an unknown state")
	return stateTerminal
}

// finalize runs the success side effects: drop the autosaved draft and
// notify other views.
func (o *Orchestrator) finalize(ctx context.Context, r *run, created *api.CreatedTransaction) {
	if o.drafts != nil {
		if err := o.drafts.ClearDraft(ctx, o.draftName); err != nil {
			o.logger.Warn("failed to clear saved draft", "error", err)
		}
	}

	if o.events == nil {
		return
	}

	// The backend does not always expose a write to reads immediately, so
	// the event is held back briefly to let refreshing views see the new
	// row. This is a workaround for backend read-after-write lag, not a
	// consistency guarantee.
	select {
	case <-ctx.Done():
		return
	case <-time.After(o.eventDelay):
	}

	if err := o.events.PublishTransactionCreated(ctx, events.NewTransactionCreated(created.ID, r.draft)); err != nil {
		o.logger.Warn("failed to publish transaction created event",
			"transaction_id", created.ID, "error", err)
	}
}
