package offer

import (
	"context"
	"errors"
	"testing"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/candidates"
	"github.com/dharsanguruparan/TalentFlow/internal/eventlog"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/storage"
	"github.com/dharsanguruparan/TalentFlow/internal/workflow"
)

type recordingNotifier struct {
	sent    []string
	changed []model.OfferStatus
	err     error
}

func (n *recordingNotifier) OfferSent(ctx context.Context, o model.Offer) error {
	n.sent = append(n.sent, o.ID)
	return n.err
}

func (n *recordingNotifier) OfferStatusChanged(ctx context.Context, o model.Offer) error {
	n.changed = append(n.changed, o.Status)
	return n.err
}

type fixture struct {
	store    *storage.MemoryStore
	engine   *Engine
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStore(nil)
	events := eventlog.New(store)
	svc := candidates.NewService(store, events, logger.Nop())
	stages := workflow.NewEngine(store, events, nil, svc, logger.Nop())
	notifier := &recordingNotifier{}
	return &fixture{
		store:    store,
		engine:   NewEngine(store, events, stages, svc, notifier, logger.Nop()),
		notifier: notifier,
	}
}

func (f *fixture) candidateAt(t *testing.T, stage model.Stage) string {
	t.Helper()
	c := &model.Candidate{Name: "Ada", Stage: stage}
	if err := f.store.InsertCandidate(context.Background(), c); err != nil {
		t.Fatalf("InsertCandidate: %v", err)
	}
	return c.ID
}

func TestCreateDraftRequiresCandidate(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.CreateDraft(context.Background(), " ", model.OfferFields{}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestCreateDraftRecordsEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.candidateAt(t, model.StageOffer)

	o, err := f.engine.CreateDraft(ctx, id, model.OfferFields{Salary: model.Some(95000.0)})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if o.Status != model.OfferDraft || o.Locked || o.Salary == nil || *o.Salary != 95000 {
		t.Fatalf("draft: %+v", o)
	}
	timeline, _ := f.store.ListTimeline(ctx, id)
	if len(timeline) != 1 || timeline[0].Payload != (model.OfferDrafted{OfferID: o.ID}) {
		t.Fatalf("timeline: %+v", timeline)
	}
}

func TestUpdateDraftMergesPartialFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.candidateAt(t, model.StageOffer)
	o, _ := f.engine.CreateDraft(ctx, id, model.OfferFields{
		Salary: model.Some(90000.0),
		Notes:  model.Some("remote ok"),
	})

	updated, err := f.engine.UpdateDraft(ctx, o.ID, model.OfferFields{
		StartDate: model.Some("2026-01-05"),
		Notes:     model.Null[string](),
	})
	if err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}
	if updated.Salary == nil || *updated.Salary != 90000 {
		t.Fatalf("omitted salary must be kept: %+v", updated.Salary)
	}
	if updated.StartDate == nil || *updated.StartDate != "2026-01-05" {
		t.Fatalf("start date: %+v", updated.StartDate)
	}
	if updated.Notes != nil {
		t.Fatalf("explicit null must clear notes, got %q", *updated.Notes)
	}
}

func TestLockedOfferRejectsEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.candidateAt(t, model.StageOffer)
	o, _ := f.engine.CreateDraft(ctx, id, model.OfferFields{Salary: model.Some(80000.0)})
	if _, err := f.engine.Lock(ctx, o.ID); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	_, err := f.engine.UpdateDraft(ctx, o.ID, model.OfferFields{Salary: model.Some(1.0)})
	if !errors.Is(err, ErrOfferLocked) {
		t.Fatalf("want ErrOfferLocked, got %v", err)
	}
	stored, _ := f.store.GetOffer(ctx, o.ID)
	if *stored.Salary != 80000 {
		t.Fatalf("locked offer changed: %v", *stored.Salary)
	}
}

func TestSendLocksAndMovesCandidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.candidateAt(t, model.StageOffer)
	o, _ := f.engine.CreateDraft(ctx, id, model.OfferFields{})

	sent, err := f.engine.Send(ctx, o.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Status != model.OfferSent || !sent.Locked {
		t.Fatalf("sent offer: %+v", sent)
	}
	c, _ := f.store.GetCandidate(ctx, id)
	if c.Stage != model.StageOfferSent {
		t.Fatalf("candidate stage: %s", c.Stage)
	}
	if c.Offer.Status != string(model.OfferSent) || c.Offer.Source != model.SourceAutomation {
		t.Fatalf("offer triple: %+v", c.Offer)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("notifier calls: %v", f.notifier.sent)
	}

	timeline, _ := f.store.ListTimeline(ctx, id)
	var types []model.EventType
	for _, e := range eventlog.Chronological(timeline) {
		types = append(types, e.Type)
	}
	want := []model.EventType{model.EventOfferDrafted, model.EventOfferSent, model.EventStageChange}
	if len(types) != len(want) {
		t.Fatalf("events: %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events: %v", types)
		}
	}
}

func TestSendKeepsOfferWhenStageMoveRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.candidateAt(t, model.StageApplied)
	o, _ := f.engine.CreateDraft(ctx, id, model.OfferFields{})

	sent, err := f.engine.Send(ctx, o.ID)
	if !errors.Is(err, workflow.ErrIllegalTransition) {
		t.Fatalf("want illegal transition, got %v", err)
	}
	if sent == nil || sent.Status != model.OfferSent {
		t.Fatalf("offer should stay sent: %+v", sent)
	}
	c, _ := f.store.GetCandidate(ctx, id)
	if c.Stage != model.StageApplied {
		t.Fatalf("candidate stage: %s", c.Stage)
	}
}

func TestNotifierFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	id := f.candidateAt(t, model.StageOffer)
	o, _ := f.engine.CreateDraft(ctx, id, model.OfferFields{})

	if _, err := f.engine.Send(ctx, o.ID); err != nil {
		t.Fatalf("notification failure surfaced: %v", err)
	}
}

func TestAcceptStartsOnboarding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.candidateAt(t, model.StageOffer)
	o, _ := f.engine.CreateDraft(ctx, id, model.OfferFields{})
	if _, err := f.engine.Send(ctx, o.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}

	accepted, err := f.engine.UpdateStatus(ctx, o.ID, model.OfferAccepted)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if accepted.Status != model.OfferAccepted || !accepted.Locked {
		t.Fatalf("accepted offer: %+v", accepted)
	}
	c, _ := f.store.GetCandidate(ctx, id)
	if c.Stage != model.StageOfferAccepted {
		t.Fatalf("candidate stage: %s", c.Stage)
	}
	if c.Onboarding.Status != candidates.OnboardingStarted {
		t.Fatalf("onboarding: %+v", c.Onboarding)
	}
	if c.Offer.Status != string(model.OfferAccepted) {
		t.Fatalf("offer triple: %+v", c.Offer)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.candidateAt(t, model.StageOffer)
	o, _ := f.engine.CreateDraft(ctx, id, model.OfferFields{})

	if _, err := f.engine.UpdateStatus(ctx, o.ID, "maybe"); !errors.Is(err, ErrInvalidOfferStatus) {
		t.Fatalf("unknown status: %v", err)
	}
	if _, err := f.engine.UpdateStatus(ctx, o.ID, model.OfferAccepted); !errors.Is(err, ErrInvalidOfferStatus) {
		t.Fatalf("draft cannot be accepted: %v", err)
	}
	if _, err := f.engine.UpdateStatus(ctx, o.ID, model.OfferWithdrawn); err != nil {
		t.Fatalf("withdraw draft: %v", err)
	}
	if _, err := f.engine.UpdateStatus(ctx, "missing", model.OfferWithdrawn); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing offer: %v", err)
	}
}

func TestManualOfferOverrideSuppressesMirror(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.candidateAt(t, model.StageOffer)
	svc := candidates.NewService(f.store, eventlog.New(f.store), logger.Nop())
	if _, err := svc.Override(ctx, id, model.StepOffer, "on_hold"); err != nil {
		t.Fatalf("Override: %v", err)
	}
	o, _ := f.engine.CreateDraft(ctx, id, model.OfferFields{})
	if _, err := f.engine.Send(ctx, o.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}
	c, _ := f.store.GetCandidate(ctx, id)
	if c.Offer.Status != "on_hold" || !c.Offer.Locked {
		t.Fatalf("locked triple overwritten: %+v", c.Offer)
	}
}

func TestLatestReturnsNewest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.candidateAt(t, model.StageOffer)
	_, _ = f.engine.CreateDraft(ctx, id, model.OfferFields{})
	second, _ := f.engine.CreateDraft(ctx, id, model.OfferFields{})

	latest, err := f.engine.Latest(ctx, id)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatalf("latest: %s want %s", latest.ID, second.ID)
	}
}
