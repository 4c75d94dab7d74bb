package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Autosaver coalesces per-keystroke draft saves into one write after the
// user pauses typing. The form owns its draft exclusively, so last-writer-
// wins is safe here.
type Autosaver struct {
	store *SQLiteStorage
	name  string
	delay time.Duration

	mu      sync.Mutex
	pending *model.TransactionDraft
	timer   *time.Timer
}

// NewAutosaver creates an autosaver for the named form. A zero delay
// defaults to 400ms.
func NewAutosaver(store *SQLiteStorage, name string, delay time.Duration) *Autosaver {
	if delay <= 0 {
		delay = 400 * time.Millisecond
	}
	return &Autosaver{
		store: store,
		name:  name,
		delay: delay,
	}
}

// Save schedules a debounced write of the draft. Successive calls within
// the delay window replace the pending snapshot and restart the timer.
func (a *Autosaver) Save(draft model.TransactionDraft) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = &draft
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.flush)
}

// Flush writes any pending draft immediately. Call on unmount so the last
// keystrokes are not lost.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.flush()
}

func (a *Autosaver) flush() {
	a.mu.Lock()
	draft := a.pending
	a.pending = nil
	a.mu.Unlock()

	if draft == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.SaveDraft(ctx, a.name, draft); err != nil {
		slog.Warn("draft autosave failed", "form", a.name, "error", err)
	}
}
