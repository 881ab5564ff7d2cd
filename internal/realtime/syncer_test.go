package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

type fakeGetter struct {
	mu    sync.Mutex
	rows  map[string]model.Candidate
	calls int
	err   error
}

func (f *fakeGetter) GetCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("candidate %s: %w", id, apperr.ErrNotFound)
	}
	return &c, nil
}

func TestSyncerUpdateRefetches(t *testing.T) {
	getter := &fakeGetter{rows: map[string]model.Candidate{
		"c1": {ID: "c1", Name: "Ada", Stage: model.StageInterview},
	}}
	cache := NewMemoryCache()
	cache.Replace(model.Candidate{ID: "c1", Name: "Ada", Stage: model.StageApplied})
	s := NewSyncer(getter, cache, logger.Nop())

	// The notification's row is stale; the syncer trusts the store instead.
	stale := NewChange(TableCandidates, ChangeUpdate, "c1", model.Candidate{ID: "c1", Stage: model.StageScreening}, nil)
	s.Handle(context.Background(), stale)
	s.Handle(context.Background(), stale)

	got, ok := cache.Get("c1")
	if !ok || got.Stage != model.StageInterview {
		t.Fatalf("cached = %+v, %v", got, ok)
	}
	if getter.calls != 2 {
		t.Fatalf("refetches = %d, want 2", getter.calls)
	}
	if cache.Loading("c1") {
		t.Fatal("loading flag left set")
	}
}

func TestSyncerLateDuplicateInsertKeepsStoredState(t *testing.T) {
	getter := &fakeGetter{rows: map[string]model.Candidate{
		"c2": {ID: "c2", Name: "Grace", Stage: model.StageApplied},
	}}
	cache := NewMemoryCache()
	s := NewSyncer(getter, cache, logger.Nop())
	ctx := context.Background()

	insert := NewChange(TableCandidates, ChangeInsert, "c2", model.Candidate{ID: "c2", Name: "Grace", Stage: model.StageApplied}, nil)
	s.Handle(ctx, insert)
	if got, ok := cache.Get("c2"); !ok || got.Stage != model.StageApplied {
		t.Fatalf("after insert = %+v, %v", got, ok)
	}

	getter.mu.Lock()
	getter.rows["c2"] = model.Candidate{ID: "c2", Name: "Grace", Stage: model.StageScreening}
	getter.mu.Unlock()
	s.Handle(ctx, Change{Table: TableCandidates, Type: ChangeUpdate, RowID: "c2"})
	s.Handle(ctx, insert)

	if got, _ := cache.Get("c2"); got.Stage != model.StageScreening {
		t.Fatalf("stage after duplicate insert = %s, want %s", got.Stage, model.StageScreening)
	}
}

func TestSyncerDeleteAndMissingRow(t *testing.T) {
	getter := &fakeGetter{rows: map[string]model.Candidate{}}
	cache := NewMemoryCache()
	cache.Replace(model.Candidate{ID: "c3"})
	cache.Replace(model.Candidate{ID: "c4"})
	s := NewSyncer(getter, cache, logger.Nop())

	s.Handle(context.Background(), Change{Table: TableCandidates, Type: ChangeDelete, RowID: "c3"})
	if _, ok := cache.Get("c3"); ok {
		t.Fatal("deleted row still cached")
	}
	// An update for a row the store no longer has evicts it.
	s.Handle(context.Background(), Change{Table: TableCandidates, Type: ChangeUpdate, RowID: "c4"})
	if _, ok := cache.Get("c4"); ok {
		t.Fatal("missing row still cached")
	}
}

func TestSyncerKeepsCacheOnFetchError(t *testing.T) {
	getter := &fakeGetter{err: errors.New("connection reset")}
	cache := NewMemoryCache()
	cache.Replace(model.Candidate{ID: "c5", Name: "Ada"})
	s := NewSyncer(getter, cache, logger.Nop())

	s.Handle(context.Background(), Change{Table: TableCandidates, Type: ChangeUpdate, RowID: "c5"})
	if _, ok := cache.Get("c5"); !ok {
		t.Fatal("transient failure evicted the row")
	}
}

func TestSyncerIgnoresOtherTables(t *testing.T) {
	getter := &fakeGetter{}
	s := NewSyncer(getter, NewMemoryCache(), logger.Nop())
	s.Handle(context.Background(), Change{Table: "timeline", Type: ChangeUpdate, RowID: "c1"})
	if getter.calls != 0 {
		t.Fatalf("calls = %d, want 0", getter.calls)
	}
}

func TestSyncerStartSubscribes(t *testing.T) {
	getter := &fakeGetter{rows: map[string]model.Candidate{"c6": {ID: "c6", Name: "Linus"}}}
	cache := NewMemoryCache()
	bus := NewMemoryBus()
	s := NewSyncer(getter, cache, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx, bus); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := bus.Publish(ctx, Change{Table: TableCandidates, Type: ChangeUpdate, RowID: "c6"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got, ok := cache.Get("c6"); !ok || got.Name != "Linus" {
		t.Fatalf("cached = %+v, %v", got, ok)
	}
}

func TestMemoryBusFiltersAndUnsubscribes(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var seen []string
	record := func(prefix string) func(Change) {
		return func(c Change) {
			mu.Lock()
			seen = append(seen, prefix+":"+c.Table)
			mu.Unlock()
		}
	}
	if err := bus.Subscribe(ctx, "offers", record("one")); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := bus.Subscribe(context.Background(), "*", record("all")); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_ = bus.Publish(ctx, Change{Table: "offers"})
	_ = bus.Publish(ctx, Change{Table: "timeline"})
	mu.Lock()
	if len(seen) != 3 || seen[0] != "one:offers" || seen[1] != "all:offers" || seen[2] != "all:timeline" {
		t.Fatalf("seen = %v", seen)
	}
	mu.Unlock()

	cancel()
	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		seen = nil
		mu.Unlock()
		_ = bus.Publish(context.Background(), Change{Table: "offers"})
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("cancelled subscriber still receiving, deliveries = %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMemoryCacheMergeAndList(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Now()
	cache.Replace(model.Candidate{ID: "b", CreatedAt: now.Add(time.Second)})
	cache.Replace(model.Candidate{ID: "a", CreatedAt: now})

	stage := model.StageScreening
	if !cache.Merge("a", model.CandidatePatch{Stage: &stage}) {
		t.Fatal("merge on cached row reported missing")
	}
	if cache.Merge("zzz", model.CandidatePatch{Stage: &stage}) {
		t.Fatal("merge on unknown row reported present")
	}
	list := cache.List()
	if len(list) != 2 || list[0].ID != "a" || list[0].Stage != model.StageScreening {
		t.Fatalf("list = %+v", list)
	}

	cache.SetLoading("a", true)
	cache.SetLoading("a", true)
	cache.SetLoading("a", false)
	if !cache.Loading("a") {
		t.Fatal("flag cleared while another fetch is still running")
	}
	cache.SetLoading("a", false)
	if cache.Loading("a") {
		t.Fatal("flag left set after every fetch finished")
	}
	cache.SetLoading("a", false)
	if cache.Loading("a") {
		t.Fatal("extra clear must not go negative")
	}

	cache.SetLoading("a", true)
	cache.Remove("a")
	if cache.Loading("a") {
		t.Fatal("remove should clear the loading flag")
	}
}

func TestDecodeChangeFromWire(t *testing.T) {
	raw, err := json.Marshal(NewChange(TableCandidates, ChangeUpdate, "c1", model.Candidate{ID: "c1"}, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	c, err := decodeChange(string(raw))
	if err != nil || c.Table != TableCandidates || c.RowID != "c1" || len(c.NewRow) == 0 {
		t.Fatalf("decoded = %+v, %v", c, err)
	}
	if _, err := decodeChange("{"); err == nil {
		t.Fatal("expected error for truncated payload")
	}
	if !matchesTable("*", "offers") || matchesTable("timeline", "offers") {
		t.Fatal("table filter mismatch")
	}
}
