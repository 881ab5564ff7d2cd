// Package api is the thin REST surface over the TalentFlow engines. Handlers
// decode input, call one engine operation and encode the result; they hold no
// business rules.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TalentFlow/internal/candidates"
	"github.com/dharsanguruparan/TalentFlow/internal/config"
	"github.com/dharsanguruparan/TalentFlow/internal/eventlog"
	"github.com/dharsanguruparan/TalentFlow/internal/ingestion"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/offer"
	"github.com/dharsanguruparan/TalentFlow/internal/queue"
	"github.com/dharsanguruparan/TalentFlow/internal/signing"
	"github.com/dharsanguruparan/TalentFlow/internal/storage"
	"github.com/dharsanguruparan/TalentFlow/internal/workflow"
)

// JobSubmitter hands an uploaded CV to background ingestion.
type JobSubmitter interface {
	SubmitIngest(ctx context.Context, payload queue.IngestPayload) error
}

// StatusLog reads the ingestion status log.
type StatusLog interface {
	ListStageStatuses(ctx context.Context, jobID string) ([]model.StageStatusRecord, error)
}

// ProgressReader exposes the per-candidate automation flag.
type ProgressReader interface {
	Loading(id string) bool
}

// Deps are the engines the handlers call.
type Deps struct {
	Candidates *candidates.Service
	Workflow   *workflow.Engine
	Offers     *offer.Engine
	Events     *eventlog.Log
	Pipeline   *ingestion.Pipeline
	Statuses   StatusLog
	Documents  storage.Documents
	Jobs       JobSubmitter
	Progress   ProgressReader
	Signer     *signing.Signer
}

// Server exposes HTTP endpoints.
type Server struct {
	cfg  *config.Config
	deps Deps
	log  *logger.Logger
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps, log *logger.Logger) *Server {
	return &Server{cfg: cfg, deps: deps, log: log.With("service", "API")}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Requested-With"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		RespondOK(c, gin.H{"status": "ok"})
	})

	cands := router.Group("/candidates")
	{
		cands.GET("", s.listCandidates)
		cands.GET("/:id", s.getCandidate)
		cands.POST("/:id/stage", s.changeStage)
		cands.POST("/:id/advance", s.advanceStage)
		cands.PUT("/:id/overrides/:step", s.overrideStatus)
		cands.POST("/:id/reference-check", s.referenceCheck)
		cands.GET("/:id/timeline", s.timeline)
		cands.GET("/:id/audit", s.audit)
		cands.GET("/:id/automation", s.automationStatus)
		cands.GET("/:id/cv-link", s.cvLink)
		cands.GET("/:id/offers", s.listOffers)
		cands.GET("/:id/offers/latest", s.latestOffer)
		cands.POST("/:id/offers", s.createOffer)
	}

	offers := router.Group("/offers")
	{
		offers.PATCH("/:id", s.updateOffer)
		offers.POST("/:id/send", s.sendOffer)
		offers.POST("/:id/lock", s.lockOffer)
		offers.POST("/:id/status", s.updateOfferStatus)
	}

	ingest := router.Group("/ingest")
	{
		ingest.POST("", s.ingestJSON)
		ingest.POST("/cv", s.ingestCV)
		ingest.GET("/jobs/:jobID", s.jobStatuses)
	}

	router.GET("/cv/:candidateID", s.downloadCV)
	return router
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.Router(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", "address", s.cfg.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
