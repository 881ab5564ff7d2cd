package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/eventlog"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

type stageRequest struct {
	Stage model.Stage `json:"stage"`
}

type overrideRequest struct {
	Value string `json:"value"`
}

func (s *Server) listCandidates(c *gin.Context) {
	list, err := s.deps.Candidates.List(c.Request.Context(), c.Query("job_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"candidates": list})
}

func (s *Server) getCandidate(c *gin.Context) {
	cand, err := s.deps.Candidates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, cand)
}

func (s *Server) changeStage(c *gin.Context) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res, err := s.deps.Workflow.ChangeStage(c.Request.Context(), c.Param("id"), req.Stage)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, res)
}

func (s *Server) advanceStage(c *gin.Context) {
	res, err := s.deps.Workflow.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, res)
}

func (s *Server) overrideStatus(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	cand, err := s.deps.Candidates.Override(c.Request.Context(), c.Param("id"), model.Step(c.Param("step")), req.Value)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, cand)
}

func (s *Server) referenceCheck(c *gin.Context) {
	value, applied, err := s.deps.Candidates.EvaluateReference(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"reference": value, "applied": applied})
}

func (s *Server) timeline(c *gin.Context) {
	events, err := s.deps.Events.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if c.Query("order") == "asc" {
		events = eventlog.Chronological(events)
	}
	RespondOK(c, gin.H{"events": events})
}

func (s *Server) audit(c *gin.Context) {
	entries, err := s.deps.Events.Audit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}

func (s *Server) automationStatus(c *gin.Context) {
	loading := false
	if s.deps.Progress != nil {
		loading = s.deps.Progress.Loading(c.Param("id"))
	}
	RespondOK(c, gin.H{"candidateId": c.Param("id"), "loading": loading})
}

func (s *Server) cvLink(c *gin.Context) {
	id := c.Param("id")
	cand, err := s.deps.Candidates.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if cand.CVObjectKey == "" {
		respondErr(c, fmt.Errorf("cv for candidate %s: %w", id, apperr.ErrNotFound))
		return
	}
	RespondOK(c, gin.H{"url": s.deps.Signer.CVLink(id, s.cfg.SignedURLTTL)})
}
