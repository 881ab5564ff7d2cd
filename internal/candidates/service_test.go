package candidates

import (
	"context"
	"errors"
	"testing"

	"github.com/dharsanguruparan/TalentFlow/internal/eventlog"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/storage"
)

func newService(t *testing.T) (*Service, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore(nil)
	return NewService(store, eventlog.New(store), logger.Nop()), store
}

func TestOverrideLocksAndSuppressesAutomation(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	c := &model.Candidate{Name: "Ken"}
	_ = store.InsertCandidate(ctx, c)

	updated, err := svc.Override(ctx, c.ID, model.StepOnboarding, "blocked")
	if err != nil {
		t.Fatalf("Override: %v", err)
	}
	want := model.StatusTriple{Status: "blocked", Source: model.SourceManual, Locked: true}
	if updated.Onboarding != want {
		t.Fatalf("onboarding triple: %+v", updated.Onboarding)
	}

	if err := svc.StartOnboarding(ctx, c.ID); err != nil {
		t.Fatalf("StartOnboarding: %v", err)
	}
	stored, _ := store.GetCandidate(ctx, c.ID)
	if stored.Onboarding != want {
		t.Fatalf("locked triple changed by automation: %+v", stored.Onboarding)
	}

	timeline, _ := store.ListTimeline(ctx, c.ID)
	if len(timeline) != 1 || timeline[0].Type != model.EventManualOverride {
		t.Fatalf("override event: %+v", timeline)
	}
}

func TestStartOnboardingWritesWhenUnlocked(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	c := &model.Candidate{}
	_ = store.InsertCandidate(ctx, c)

	if err := svc.StartOnboarding(ctx, c.ID); err != nil {
		t.Fatalf("StartOnboarding: %v", err)
	}
	stored, _ := store.GetCandidate(ctx, c.ID)
	if stored.Onboarding.Status != OnboardingStarted || stored.Onboarding.Source != model.SourceAutomation || stored.Onboarding.Locked {
		t.Fatalf("onboarding triple: %+v", stored.Onboarding)
	}
}

func TestOverrideRejectsUnknownStep(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Override(context.Background(), "c1", "payroll", "x"); !errors.Is(err, ErrUnknownStep) {
		t.Fatalf("want ErrUnknownStep, got %v", err)
	}
}

func TestEvaluateReference(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	score := 72.0
	strong := &model.Candidate{InterviewScore: &score}
	recommended := &model.Candidate{Rating: "Recommended"}
	weak := &model.Candidate{Rating: "maybe"}
	for _, c := range []*model.Candidate{strong, recommended, weak} {
		_ = store.InsertCandidate(ctx, c)
	}
	cases := map[string]string{strong.ID: ReferencePassed, recommended.ID: ReferencePassed, weak.ID: ReferenceFailed}
	for id, want := range cases {
		got, written, err := svc.EvaluateReference(ctx, id)
		if err != nil || !written || got != want {
			t.Fatalf("EvaluateReference(%s): got=%s written=%v err=%v want=%s", id, got, written, err, want)
		}
	}
}
