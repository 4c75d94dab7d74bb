package submit

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/api"
	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/events"
	"github.com/ledgerline/ledgerline/internal/model"
)

func validDraft() *model.TransactionDraft {
	return &model.TransactionDraft{
		ClientName:    "Acme Corp",
		Date:          "2026-01-15",
		Amount:        "100.50",
		Currency:      model.CurrencyLocal,
		Category:      model.CategoryWithdraw,
		PaymentMethod: "Bank",
	}
}

type sessionResult struct {
	err   error
	state model.SessionState
}

// fakeEnsurer answers each session cycle from a queue; a call past the end
// repeats the last answer. It records the forceRefresh flag of every call.
type fakeEnsurer struct {
	results []sessionResult
	forced  []bool
	calls   int
}

func (f *fakeEnsurer) EnsureFreshSession(_ context.Context, forceRefresh bool) (model.SessionState, error) {
	f.forced = append(f.forced, forceRefresh)
	r := pick(f.results, f.calls)
	f.calls++
	return r.state, r.err
}

func authenticated(token string) sessionResult {
	return sessionResult{state: model.SessionState{Authenticated: true, Token: token}}
}

type writeResult struct {
	created *api.CreatedTransaction
	err     error
}

type fakeWriter struct {
	block   chan struct{}
	results []writeResult
	tokens  []string
	calls   int
	mu      sync.Mutex
}

func (f *fakeWriter) CreateTransaction(_ context.Context, _ api.TransactionPayload, token string) (*api.CreatedTransaction, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	r := pick(f.results, f.calls)
	f.calls++
	return r.created, r.err
}

func written(id int64) writeResult {
	return writeResult{created: &api.CreatedTransaction{ID: id}}
}

func rejected(status int, body string) writeResult {
	return writeResult{err: &api.WriteError{StatusCode: status, Body: []byte(body)}}
}

type fakeDrafts struct {
	cleared  []string
	clearErr error
}

func (f *fakeDrafts) ClearDraft(_ context.Context, name string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = append(f.cleared, name)
	return nil
}

func pick[T any](results []T, call int) T {
	if call < len(results) {
		return results[call]
	}
	return results[len(results)-1]
}

func newTestOrchestrator(ensurer *fakeEnsurer, writer *fakeWriter, drafts *fakeDrafts, pub events.Publisher) *Orchestrator {
	return NewOrchestrator(Config{
		Session:    ensurer,
		Writer:     writer,
		Drafts:     drafts,
		DraftName:  "add-transaction",
		Events:     pub,
		RetryDelay: time.Millisecond,
		EventDelay: -1,
	})
}

func TestSubmit_SuccessFirstAttempt(t *testing.T) {
	ensurer := &fakeEnsurer{results: []sessionResult{authenticated("tok-1")}}
	writer := &fakeWriter{results: []writeResult{written(7)}}
	drafts := &fakeDrafts{}
	pub := events.NewMockPublisher()

	orch := newTestOrchestrator(ensurer, writer, drafts, pub)
	outcome := orch.Submit(context.Background(), validDraft())

	assert.Equal(t, model.SuccessOutcome(7), outcome)
	assert.Equal(t, 1, ensurer.calls)
	assert.Equal(t, []string{"tok-1"}, writer.tokens)
	assert.Equal(t, []string{"add-transaction"}, drafts.cleared)

	published := pub.Published()
	require.Len(t, published, 1)
	assert.Equal(t, int64(7), published[0].TransactionID)
	assert.Equal(t, "Acme Corp", published[0].ClientName)
}

func TestSubmit_ValidationFailureMakesNoNetworkCalls(t *testing.T) {
	ensurer := &fakeEnsurer{results: []sessionResult{authenticated("tok")}}
	writer := &fakeWriter{results: []writeResult{written(1)}}
	drafts := &fakeDrafts{}

	draft := validDraft()
	draft.Amount = "-5"

	orch := newTestOrchestrator(ensurer, writer, drafts, events.NewMockPublisher())
	outcome := orch.Submit(context.Background(), draft)

	assert.Equal(t, model.OutcomeValidationFailed, outcome.Kind)
	assert.Equal(t, "amount", outcome.Field)
	assert.Equal(t, 0, ensurer.calls)
	assert.Equal(t, 0, writer.calls)
	assert.Empty(t, drafts.cleared)
}

func TestSubmit_TokenRejectionRetriesWithForcedRefresh(t *testing.T) {
	ensurer := &fakeEnsurer{results: []sessionResult{
		authenticated("tok-stale"),
		authenticated("tok-fresh"),
	}}
	writer := &fakeWriter{results: []writeResult{
		rejected(http.StatusForbidden, `{"csrf_error": true}`),
		written(8),
	}}
	drafts := &fakeDrafts{}
	pub := events.NewMockPublisher()

	orch := newTestOrchestrator(ensurer, writer, drafts, pub)
	outcome := orch.Submit(context.Background(), validDraft())

	assert.Equal(t, model.SuccessOutcome(8), outcome)
	assert.Equal(t, 2, ensurer.calls)
	assert.Equal(t, []bool{false, true}, ensurer.forced, "the retry must force a session refresh")
	assert.Equal(t, []string{"tok-stale", "tok-fresh"}, writer.tokens)
	assert.Equal(t, []string{"add-transaction"}, drafts.cleared)
	assert.Len(t, pub.Published(), 1)
}

func TestSubmit_PersistentTokenRejectionStopsAtThreeAttempts(t *testing.T) {
	ensurer := &fakeEnsurer{results: []sessionResult{authenticated("tok")}}
	writer := &fakeWriter{results: []writeResult{
		rejected(http.StatusForbidden, `{"csrf_error": true}`),
	}}
	drafts := &fakeDrafts{}
	pub := events.NewMockPublisher()

	orch := newTestOrchestrator(ensurer, writer, drafts, pub)
	outcome := orch.Submit(context.Background(), validDraft())

	assert.Equal(t, model.OutcomeFailed, outcome.Kind)
	assert.Equal(t, "the session could not be secured; please retry", outcome.Message)
	assert.Equal(t, 3, writer.calls, "the attempt bound is three, no more")
	assert.Equal(t, 3, ensurer.calls)
	assert.Empty(t, drafts.cleared, "the draft survives a failed run")
	assert.Empty(t, pub.Published())
}

func TestSubmit_ServerRejectionIsNotRetried(t *testing.T) {
	ensurer := &fakeEnsurer{results: []sessionResult{authenticated("tok")}}
	writer := &fakeWriter{results: []writeResult{
		rejected(http.StatusInternalServerError, `{"message": "database unavailable"}`),
	}}
	drafts := &fakeDrafts{}

	orch := newTestOrchestrator(ensurer, writer, drafts, events.NewMockPublisher())
	outcome := orch.Submit(context.Background(), validDraft())

	assert.Equal(t, model.OutcomeFailed, outcome.Kind)
	assert.Equal(t, "database unavailable", outcome.Message)
	assert.Equal(t, 1, writer.calls, "a definitive rejection must not produce a second write")
	assert.Empty(t, drafts.cleared)
}

func TestSubmit_SessionDefinitivelyRejected(t *testing.T) {
	ensurer := &fakeEnsurer{results: []sessionResult{
		{state: model.SessionState{Authenticated: false}},
	}}
	writer := &fakeWriter{results: []writeResult{written(1)}}

	orch := newTestOrchestrator(ensurer, writer, &fakeDrafts{}, events.NewMockPublisher())
	outcome := orch.Submit(context.Background(), validDraft())

	assert.Equal(t, model.OutcomeFailed, outcome.Kind)
	assert.Equal(t, "your session could not be restored; please sign in again", outcome.Message)
	assert.Equal(t, 1, ensurer.calls, "a credential rejection is terminal")
	assert.Equal(t, 0, writer.calls)
}

func TestSubmit_EmptyTokenFailsFast(t *testing.T) {
	ensurer := &fakeEnsurer{results: []sessionResult{{err: api.ErrEmptyToken}}}
	writer := &fakeWriter{results: []writeResult{written(1)}}

	orch := newTestOrchestrator(ensurer, writer, &fakeDrafts{}, events.NewMockPublisher())
	outcome := orch.Submit(context.Background(), validDraft())

	assert.Equal(t, model.OutcomeFailed, outcome.Kind)
	assert.Equal(t, "the server did not issue a security token; please retry later", outcome.Message)
	assert.Equal(t, 1, ensurer.calls)
	assert.Equal(t, 0, writer.calls)
}

func TestSubmit_UnreachableServerExhaustsAttempts(t *testing.T) {
	netErr := &common.RetryableError{Err: errors.New("connection refused"), Retryable: true}
	ensurer := &fakeEnsurer{results: []sessionResult{{err: netErr}}}
	writer := &fakeWriter{results: []writeResult{written(1)}}

	orch := newTestOrchestrator(ensurer, writer, &fakeDrafts{}, events.NewMockPublisher())
	outcome := orch.Submit(context.Background(), validDraft())

	assert.Equal(t, model.OutcomeFailed, outcome.Kind)
	assert.Equal(t, "could not reach the server; check your connection and try again", outcome.Message)
	assert.Equal(t, 3, ensurer.calls)
	assert.Equal(t, 0, writer.calls)
}

func TestSubmit_TransientWriteFailureRecovers(t *testing.T) {
	netErr := &common.RetryableError{Err: errors.New("connection reset"), Retryable: true}
	ensurer := &fakeEnsurer{results: []sessionResult{authenticated("tok")}}
	writer := &fakeWriter{results: []writeResult{
		{err: netErr},
		written(9),
	}}

	orch := newTestOrchestrator(ensurer, writer, &fakeDrafts{}, events.NewMockPublisher())
	outcome := orch.Submit(context.Background(), validDraft())

	assert.Equal(t, model.SuccessOutcome(9), outcome)
	assert.Equal(t, 2, writer.calls)
}

func TestSubmit_CancellationDuringRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ensurer := &fakeEnsurer{results: []sessionResult{authenticated("tok")}}
	writer := &fakeWriter{results: []writeResult{
		rejected(http.StatusForbidden, `{"csrf_error": true}`),
	}}

	orch := NewOrchestrator(Config{
		Session:    ensurer,
		Writer:     writer,
		RetryDelay: time.Minute, // the test cancels long before this elapses
		EventDelay: -1,
	})

	done := make(chan model.SubmissionOutcome, 1)
	go func() {
		done <- orch.Submit(ctx, validDraft())
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case outcome := <-done:
		assert.Equal(t, model.OutcomeFailed, outcome.Kind)
		assert.Equal(t, "submission canceled", outcome.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not unblock the retry wait")
	}
}

func TestSubmit_SecondConcurrentRunRefused(t *testing.T) {
	block := make(chan struct{})
	ensurer := &fakeEnsurer{results: []sessionResult{authenticated("tok")}}
	writer := &fakeWriter{block: block, results: []writeResult{written(1)}}

	orch := newTestOrchestrator(ensurer, writer, &fakeDrafts{}, events.NewMockPublisher())

	first := make(chan model.SubmissionOutcome, 1)
	go func() {
		first <- orch.Submit(context.Background(), validDraft())
	}()
	time.Sleep(10 * time.Millisecond) // let the first run reach the write

	second := orch.Submit(context.Background(), validDraft())
	assert.Equal(t, model.OutcomeFailed, second.Kind)
	assert.Equal(t, "a submission is already in progress", second.Message)

	close(block)
	outcome := <-first
	assert.Equal(t, model.OutcomeSuccess, outcome.Kind)

	// The guard resets once the run finishes.
	writer.block = nil
	third := orch.Submit(context.Background(), validDraft())
	assert.Equal(t, model.OutcomeSuccess, third.Kind)
}

func TestSubmit_ClearDraftFailureDoesNotFailTheRun(t *testing.T) {
	ensurer := &fakeEnsurer{results: []sessionResult{authenticated("tok")}}
	writer := &fakeWriter{results: []writeResult{written(5)}}
	drafts := &fakeDrafts{clearErr: errors.New("disk full")}
	pub := events.NewMockPublisher()

	orch := newTestOrchestrator(ensurer, writer, drafts, pub)
	outcome := orch.Submit(context.Background(), validDraft())

	assert.Equal(t, model.SuccessOutcome(5), outcome)
	assert.Len(t, pub.Published(), 1, "the event still goes out")
}

func TestSubmit_PublishFailureDoesNotFailTheRun(t *testing.T) {
	ensurer := &fakeEnsurer{results: []sessionResult{authenticated("tok")}}
	writer := &fakeWriter{results: []writeResult{written(6)}}
	drafts := &fakeDrafts{}
	pub := events.NewMockPublisher()
	pub.SetPublishError(errors.New("broker unavailable"))

	orch := newTestOrchestrator(ensurer, writer, drafts, pub)
	outcome := orch.Submit(context.Background(), validDraft())

	assert.Equal(t, model.SuccessOutcome(6), outcome)
	assert.Equal(t, []string{"add-transaction"}, drafts.cleared)
}

func TestSubmit_NilDraftsAndEventsAreOptional(t *testing.T) {
	ensurer := &fakeEnsurer{results: []sessionResult{authenticated("tok")}}
	writer := &fakeWriter{results: []writeResult{written(3)}}

	orch := NewOrchestrator(Config{
		Session:    ensurer,
		Writer:     writer,
		RetryDelay: time.Millisecond,
		EventDelay: -1,
	})

	outcome := orch.Submit(context.Background(), validDraft())
	assert.Equal(t, model.SuccessOutcome(3), outcome)
}
