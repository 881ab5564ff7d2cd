package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TalentFlow/internal/candidates"
	"github.com/dharsanguruparan/TalentFlow/internal/config"
	"github.com/dharsanguruparan/TalentFlow/internal/eventlog"
	"github.com/dharsanguruparan/TalentFlow/internal/ingestion"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/offer"
	"github.com/dharsanguruparan/TalentFlow/internal/queue"
	"github.com/dharsanguruparan/TalentFlow/internal/realtime"
	"github.com/dharsanguruparan/TalentFlow/internal/signing"
	"github.com/dharsanguruparan/TalentFlow/internal/storage"
	"github.com/dharsanguruparan/TalentFlow/internal/workflow"
)

type recordingJobs struct {
	jobs []queue.IngestPayload
	err  error
}

func (r *recordingJobs) SubmitIngest(ctx context.Context, p queue.IngestPayload) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, p)
	return nil
}

type testServer struct {
	store  *storage.MemoryStore
	blobs  *storage.MemoryBlobs
	jobs   *recordingJobs
	cache  *realtime.MemoryCache
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := storage.NewMemoryStore(nil)
	blobs := storage.NewMemoryBlobs()
	events := eventlog.New(store)
	log := logger.Nop()
	svc := candidates.NewService(store, events, log)
	flow := workflow.NewEngine(store, events, nil, svc, log)
	jobs := &recordingJobs{}
	cache := realtime.NewMemoryCache()
	cfg := &config.Config{
		MaxFileSize:  1 << 20,
		AllowedTypes: []string{".pdf", ".txt"},
		SignedURLTTL: time.Minute,
	}
	srv := New(cfg, Deps{
		Candidates: svc,
		Workflow:   flow,
		Offers:     offer.NewEngine(store, events, flow, svc, nil, log),
		Events:     events,
		Pipeline:   ingestion.New(store, events, log),
		Statuses:   store,
		Documents:  blobs,
		Jobs:       jobs,
		Progress:   cache,
		Signer:     signing.NewSigner([]byte("test-secret")),
	}, log)
	return &testServer{store: store, blobs: blobs, jobs: jobs, cache: cache, router: srv.Router()}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) candidate(t *testing.T, c model.Candidate) string {
	t.Helper()
	if err := ts.store.InsertCandidate(context.Background(), &c); err != nil {
		t.Fatalf("InsertCandidate: %v", err)
	}
	return c.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestIngestJSONCreatesCandidate(t *testing.T) {
	ts := newTestServer(t)
	name, role := "Ada Lovelace", "Backend Engineer"
	years := 5.0
	rec := ts.do(t, http.MethodPost, "/ingest?job_id=job-1", model.RawCandidate{
		Name: &name, Role: &role, ExperienceYears: &years, Skills: []string{"Go", "SQL"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[model.Candidate](t, rec)
	if created.JobID != "job-1" || created.Stage != model.StageApplied || created.Role != "backend engineer" {
		t.Fatalf("unexpected candidate: %+v", created)
	}

	rec = ts.do(t, http.MethodGet, "/ingest/jobs/job-1", nil)
	statuses := decode[struct {
		Statuses []model.StageStatusRecord `json:"statuses"`
	}](t, rec)
	if len(statuses.Statuses) != 2*len(model.IngestionStages) {
		t.Fatalf("status records = %d, want %d", len(statuses.Statuses), 2*len(model.IngestionStages))
	}

	rec = ts.do(t, http.MethodGet, "/candidates?job_id=job-1", nil)
	list := decode[struct {
		Candidates []model.Candidate `json:"candidates"`
	}](t, rec)
	if len(list.Candidates) != 1 || list.Candidates[0].ID != created.ID {
		t.Fatalf("list = %+v", list.Candidates)
	}
}

func TestChangeStageErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.candidate(t, model.Candidate{Name: "Ada"})

	rec := ts.do(t, http.MethodPost, "/candidates/"+id+"/stage", stageRequest{Stage: "nowhere"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid stage status = %d, want 400", rec.Code)
	}
	env := decode[ErrorEnvelope](t, rec)
	if env.Error.Code != "validation_error" {
		t.Fatalf("code = %q", env.Error.Code)
	}

	rec = ts.do(t, http.MethodPost, "/candidates/"+id+"/stage", stageRequest{Stage: model.StageOnboardingComplete})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("illegal transition status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/candidates/missing/stage", stageRequest{Stage: model.StageScreening})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing candidate status = %d, want 404", rec.Code)
	}
}

func TestAdvanceAndTimeline(t *testing.T) {
	ts := newTestServer(t)
	id := ts.candidate(t, model.Candidate{Name: "Ada"})

	rec := ts.do(t, http.MethodPost, "/candidates/"+id+"/advance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("advance status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[workflow.Result](t, rec)
	if res.OldStage != model.StageApplied || res.NewStage != model.StageScreening {
		t.Fatalf("result = %+v", res)
	}

	rec = ts.do(t, http.MethodGet, "/candidates/"+id+"/timeline", nil)
	tl := decode[struct {
		Events []model.TimelineEvent `json:"events"`
	}](t, rec)
	if len(tl.Events) != 1 || tl.Events[0].Type != model.EventStageChange {
		t.Fatalf("timeline = %+v", tl.Events)
	}
	rec = ts.do(t, http.MethodGet, "/candidates/"+id+"/audit", nil)
	au := decode[struct {
		Entries []model.AuditEntry `json:"entries"`
	}](t, rec)
	if len(au.Entries) != 1 || au.Entries[0].Action != model.EventStageChange {
		t.Fatalf("audit = %+v", au.Entries)
	}
}

func TestOverrideLocksStep(t *testing.T) {
	ts := newTestServer(t)
	id := ts.candidate(t, model.Candidate{Name: "Ada"})

	rec := ts.do(t, http.MethodPut, "/candidates/"+id+"/overrides/reference", overrideRequest{Value: "passed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("override status = %d, body %s", rec.Code, rec.Body.String())
	}
	c := decode[model.Candidate](t, rec)
	if c.Reference.Status != "passed" || c.Reference.Source != model.SourceManual || !c.Reference.Locked {
		t.Fatalf("reference = %+v", c.Reference)
	}

	rec = ts.do(t, http.MethodPut, "/candidates/"+id+"/overrides/salary", overrideRequest{Value: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown step status = %d, want 400", rec.Code)
	}
}

func TestOfferFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.candidate(t, model.Candidate{Name: "Ada", Stage: model.StageOffer})

	rec := ts.do(t, http.MethodPost, "/candidates/"+id+"/offers", map[string]any{"salary": 120000, "notes": "remote"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	draft := decode[model.Offer](t, rec)

	rec = ts.do(t, http.MethodPatch, "/offers/"+draft.ID, map[string]any{"notes": nil})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	if updated := decode[model.Offer](t, rec); updated.Notes != nil || updated.Salary == nil {
		t.Fatalf("updated = %+v", updated)
	}

	rec = ts.do(t, http.MethodPost, "/offers/"+draft.ID+"/send", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("send status = %d, body %s", rec.Code, rec.Body.String())
	}
	sent := decode[struct {
		Offer   model.Offer `json:"offer"`
		Warning string      `json:"warning"`
	}](t, rec)
	if sent.Offer.Status != model.OfferSent || !sent.Offer.Locked || sent.Warning != "" {
		t.Fatalf("sent = %+v", sent)
	}

	rec = ts.do(t, http.MethodPatch, "/offers/"+draft.ID, map[string]any{"salary": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("locked update status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/offers/"+draft.ID+"/status", offerStatusRequest{Status: model.OfferAccepted})
	if rec.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body %s", rec.Code, rec.Body.String())
	}
	c, err := ts.store.GetCandidate(context.Background(), id)
	if err != nil {
		t.Fatalf("GetCandidate: %v", err)
	}
	if c.Stage != model.StageOfferAccepted {
		t.Fatalf("stage = %s, want %s", c.Stage, model.StageOfferAccepted)
	}

	rec = ts.do(t, http.MethodGet, "/candidates/"+id+"/offers/latest", nil)
	if latest := decode[model.Offer](t, rec); latest.ID != draft.ID || latest.Status != model.OfferAccepted {
		t.Fatalf("latest = %+v", latest)
	}
}

func uploadRequest(t *testing.T, filename, content, jobID string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if jobID != "" {
		if err := w.WriteField("job_id", jobID); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/ingest/cv", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestIngestCVQueuesJob(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, uploadRequest(t, "ada.txt", "Name: Ada\nRole: Engineer", "job-9"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(ts.jobs.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(ts.jobs.jobs))
	}
	job := ts.jobs.jobs[0]
	if job.JobID != "job-9" || job.FileName != "ada.txt" || !strings.HasPrefix(job.ObjectKey, "cvs/job-9/") {
		t.Fatalf("job = %+v", job)
	}
	data, err := ts.blobs.GetCV(context.Background(), job.ObjectKey)
	if err != nil || !strings.Contains(string(data), "Ada") {
		t.Fatalf("stored cv = %q, %v", data, err)
	}
}

func TestIngestCVRejections(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, uploadRequest(t, "ada.exe", "MZ", ""))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("type status = %d, want 415", rec.Code)
	}

	ts.jobs.err = errors.New("redis down")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, uploadRequest(t, "ada.txt", "Ada", ""))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("queue status = %d, want 503", rec.Code)
	}
}

func TestSignedCVDownload(t *testing.T) {
	ts := newTestServer(t)
	key := "cvs/job-1/ada.txt"
	if err := ts.blobs.PutCV(context.Background(), key, []byte("cv body"), "text/plain"); err != nil {
		t.Fatalf("PutCV: %v", err)
	}
	id := ts.candidate(t, model.Candidate{Name: "Ada", CVObjectKey: key})

	rec := ts.do(t, http.MethodGet, "/candidates/"+id+"/cv-link", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("link status = %d", rec.Code)
	}
	link := decode[struct {
		URL string `json:"url"`
	}](t, rec)

	rec = ts.do(t, http.MethodGet, link.URL, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "cv body" {
		t.Fatalf("download = %d %q", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, strings.Replace(link.URL, "sig=", "sig=00", 1), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("tampered status = %d, want 403", rec.Code)
	}

	bare := ts.candidate(t, model.Candidate{Name: "Grace"})
	rec = ts.do(t, http.MethodGet, "/candidates/"+bare+"/cv-link", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no cv status = %d, want 404", rec.Code)
	}
}

func TestAutomationStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.cache.SetLoading("c1", true)
	rec := ts.do(t, http.MethodGet, "/candidates/c1/automation", nil)
	body := decode[struct {
		Loading bool `json:"loading"`
	}](t, rec)
	if !body.Loading {
		t.Fatal("expected loading flag")
	}
}
