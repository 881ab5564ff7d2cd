// Package automation fans a committed stage change out to registered
// handlers. Dispatch never fails the caller: fetch errors, handler errors and
// handler panics are logged and dropped.
package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

// Event is what handlers receive for one stage change.
type Event struct {
	CandidateID string
	From        model.Stage
	To          model.Stage
	Candidate   model.Candidate
	TriggeredAt time.Time
}

// Handler is one automation module.
type Handler interface {
	Name() string
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	ID string
	Fn func(ctx context.Context, ev Event) error
}

func (h HandlerFunc) Name() string { return h.ID }

func (h HandlerFunc) Handle(ctx context.Context, ev Event) error { return h.Fn(ctx, ev) }

// CandidateGetter loads the latest candidate row.
type CandidateGetter interface {
	GetCandidate(ctx context.Context, id string) (*model.Candidate, error)
}

// ProgressTracker exposes the per-candidate "automation in progress" flag.
type ProgressTracker interface {
	SetLoading(id string, loading bool)
}

// Dispatcher runs every registered handler with per-handler isolation.
type Dispatcher struct {
	store    CandidateGetter
	progress ProgressTracker
	log      *logger.Logger
	now      func() time.Time

	mu       sync.RWMutex
	handlers []Handler
}

// NewDispatcher wires a Dispatcher. progress may be nil.
func NewDispatcher(store CandidateGetter, progress ProgressTracker, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		progress: progress,
		log:      log.With("service", "AutomationDispatcher"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register appends handlers; they run in registration order.
func (d *Dispatcher) Register(handlers ...Handler) {
	d.mu.Lock()
	d.handlers = append(d.handlers, handlers...)
	d.mu.Unlock()
}

// Dispatch fetches the latest candidate and runs the handlers.
func (d *Dispatcher) Dispatch(ctx context.Context, candidateID string, from, to model.Stage) {
	d.setProgress(candidateID, true)
	cand, err := d.store.GetCandidate(ctx, candidateID)
	d.setProgress(candidateID, false)
	if err != nil {
		d.log.Warn("automation skipped, candidate fetch failed", "candidate_id", candidateID, "op", "dispatch", "error", err)
		return
	}

	ev := Event{
		CandidateID: candidateID,
		From:        from,
		To:          to,
		Candidate:   *cand,
		TriggeredAt: d.now(),
	}
	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers...)
	d.mu.RUnlock()
	for _, h := range handlers {
		if err := d.run(ctx, h, ev); err != nil {
			d.log.Warn("automation handler failed", "candidate_id", candidateID, "op", h.Name(), "error", err)
		}
	}
	d.log.Debug("automation completed", "candidate_id", candidateID, "from", from, "to", to, "handlers", len(handlers))
}

func (d *Dispatcher) run(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

func (d *Dispatcher) setProgress(id string, loading bool) {
	if d.progress != nil {
		d.progress.SetLoading(id, loading)
	}
}
