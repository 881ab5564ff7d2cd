package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/realtime"
)

func TestCandidateCRUDPublishesChanges(t *testing.T) {
	ctx := context.Background()
	bus := realtime.NewMemoryBus()
	var changes []realtime.Change
	if err := bus.Subscribe(ctx, TableCandidates, func(c realtime.Change) { changes = append(changes, c) }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	store := NewMemoryStore(bus)

	c := &model.Candidate{Name: "Ada", Skills: []string{"go"}}
	if err := store.InsertCandidate(ctx, c); err != nil {
		t.Fatalf("InsertCandidate: %v", err)
	}
	if c.ID == "" || c.Stage != model.StageApplied {
		t.Fatalf("insert defaults not applied: %+v", c)
	}
	if err := store.InsertCandidate(ctx, &model.Candidate{ID: c.ID}); !errors.Is(err, apperr.ErrStoreWrite) {
		t.Fatalf("duplicate insert err = %v", err)
	}

	got, err := store.GetCandidate(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCandidate: %v", err)
	}
	got.Skills[0] = "mutated"
	again, _ := store.GetCandidate(ctx, c.ID)
	if again.Skills[0] != "go" {
		t.Fatal("reads must return copies")
	}

	stage := model.StageScreening
	updated, err := store.UpdateCandidate(ctx, c.ID, model.CandidatePatch{Stage: &stage})
	if err != nil {
		t.Fatalf("UpdateCandidate: %v", err)
	}
	if updated.Stage != model.StageScreening || updated.Name != "Ada" {
		t.Fatalf("patch merged wrong: %+v", updated)
	}
	if _, err := store.UpdateCandidate(ctx, "missing", model.CandidatePatch{Stage: &stage}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("update missing err = %v", err)
	}
	if err := store.DeleteCandidate(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCandidate: %v", err)
	}
	if _, err := store.GetCandidate(ctx, c.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("get deleted err = %v", err)
	}

	want := []realtime.ChangeType{realtime.ChangeInsert, realtime.ChangeUpdate, realtime.ChangeDelete}
	if len(changes) != len(want) {
		t.Fatalf("changes = %d, want %d", len(changes), len(want))
	}
	for i, typ := range want {
		if changes[i].Type != typ || changes[i].RowID != c.ID {
			t.Fatalf("change %d = %+v", i, changes[i])
		}
	}
}

func TestListCandidatesByJob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	for _, c := range []*model.Candidate{
		{Name: "first", JobID: "j1"},
		{Name: "other", JobID: "j2"},
		{Name: "second", JobID: "j1"},
	} {
		if err := store.InsertCandidate(ctx, c); err != nil {
			t.Fatalf("InsertCandidate: %v", err)
		}
	}
	list, _ := store.ListCandidates(ctx, "j1")
	if len(list) != 2 || list[0].Name != "first" || list[1].Name != "second" {
		t.Fatalf("list = %+v", list)
	}
	all, _ := store.ListCandidates(ctx, "")
	if len(all) != 3 {
		t.Fatalf("all = %d, want 3", len(all))
	}
}

func TestOffersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	first := &model.Offer{CandidateID: "c1", Status: model.OfferDraft}
	second := &model.Offer{CandidateID: "c1", Status: model.OfferDraft}
	for _, o := range []*model.Offer{first, second, {CandidateID: "c2"}} {
		if err := store.InsertOffer(ctx, o); err != nil {
			t.Fatalf("InsertOffer: %v", err)
		}
	}
	latest, err := store.LatestOffer(ctx, "c1")
	if err != nil || latest.ID != second.ID {
		t.Fatalf("latest = %+v, %v", latest, err)
	}
	if _, err := store.LatestOffer(ctx, "nobody"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("latest for unknown err = %v", err)
	}
	locked := true
	o, err := store.UpdateOffer(ctx, first.ID, model.OfferPatch{Locked: &locked})
	if err != nil || !o.Locked || o.Status != model.OfferDraft {
		t.Fatalf("update offer = %+v, %v", o, err)
	}
}

func TestEventsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	for _, p := range []model.Payload{
		model.StageChange{From: model.StageApplied, To: model.StageScreening},
		model.StageChange{From: model.StageScreening, To: model.StageInterview},
	} {
		if err := store.AppendTimeline(ctx, &model.TimelineEvent{CandidateID: "c1", Type: p.EventType(), Payload: p}); err != nil {
			t.Fatalf("AppendTimeline: %v", err)
		}
	}
	_ = store.AppendTimeline(ctx, &model.TimelineEvent{CandidateID: "c2", Type: model.EventOnboardingStarted, Payload: model.OnboardingStarted{}})

	events, _ := store.ListTimeline(ctx, "c1")
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if sc := events[0].Payload.(model.StageChange); sc.To != model.StageInterview {
		t.Fatalf("newest = %+v", sc)
	}
	if !events[0].CreatedAt.After(events[1].CreatedAt) {
		t.Fatal("timestamps must strictly increase")
	}
}

func TestRecordStageStatusMirrorsOntoCandidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	c := &model.Candidate{Name: "Ada"}
	if err := store.InsertCandidate(ctx, c); err != nil {
		t.Fatalf("InsertCandidate: %v", err)
	}
	if err := store.RecordStageStatus(ctx, &model.StageStatusRecord{JobID: "j1", Stage: model.IngestParsed, Status: model.StagePending}); err != nil {
		t.Fatalf("RecordStageStatus: %v", err)
	}
	if err := store.RecordStageStatus(ctx, &model.StageStatusRecord{JobID: "j1", CandidateID: c.ID, Stage: model.IngestScored, Status: model.StageSuccess}); err != nil {
		t.Fatalf("RecordStageStatus: %v", err)
	}
	recs, _ := store.ListStageStatuses(ctx, "j1")
	if len(recs) != 2 || recs[0].Status != model.StagePending {
		t.Fatalf("records = %+v", recs)
	}
	got, _ := store.GetCandidate(ctx, c.ID)
	if got.Ingestion.Get(model.IngestScored) != model.StageSuccess {
		t.Fatalf("ingestion = %+v", got.Ingestion)
	}
	err := store.RecordStageStatus(ctx, &model.StageStatusRecord{JobID: "j1", CandidateID: "missing", Stage: model.IngestParsed, Status: model.StageFailed})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("mirror onto missing err = %v", err)
	}
}

func TestMemoryBlobs(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobs()
	data := []byte("cv")
	if err := blobs.PutCV(ctx, "k", data, "text/plain"); err != nil {
		t.Fatalf("PutCV: %v", err)
	}
	data[0] = 'X'
	got, err := blobs.GetCV(ctx, "k")
	if err != nil || string(got) != "cv" {
		t.Fatalf("GetCV = %q, %v", got, err)
	}
	if _, err := blobs.GetCV(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}
