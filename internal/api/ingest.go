package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/cvtext"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/queue"
)

// ingestJSON runs the pipeline synchronously for one structured candidate.
func (s *Server) ingestJSON(c *gin.Context) {
	var raw model.RawCandidate
	if err := c.ShouldBindJSON(&raw); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	cand, err := s.deps.Pipeline.Ingest(c.Request.Context(), c.Query("job_id"), &raw)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, cand)
}

// ingestCV stores an uploaded CV and queues it for background ingestion.
func (s *Server) ingestCV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxFileSize)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if !s.cfg.AllowsFile(fh.Filename) {
		RespondError(c, http.StatusUnsupportedMediaType, "unsupported_type",
			fmt.Errorf("file type %q not allowed", filepath.Ext(fh.Filename)))
		return
	}
	f, err := fh.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}

	jobID := strings.TrimSpace(c.PostForm("job_id"))
	if jobID == "" {
		jobID = uuid.NewString()
	}
	key := fmt.Sprintf("cvs/%s/%s%s", jobID, uuid.NewString(), strings.ToLower(filepath.Ext(fh.Filename)))
	if err := s.deps.Documents.PutCV(c.Request.Context(), key, data, cvtext.ContentType(fh.Filename)); err != nil {
		s.log.Error("cv upload failed", "job_id", jobID, "object_key", key, "error", err)
		respondErr(c, fmt.Errorf("store cv: %w", errors.Join(apperr.ErrStoreWrite, err)))
		return
	}
	payload := queue.IngestPayload{JobID: jobID, ObjectKey: key, FileName: fh.Filename}
	if err := s.deps.Jobs.SubmitIngest(c.Request.Context(), payload); err != nil {
		s.log.Error("ingest submit failed", "job_id", jobID, "error", err)
		RespondError(c, http.StatusServiceUnavailable, "queue_unavailable", err)
		return
	}
	s.log.Info("cv accepted", "job_id", jobID, "object_key", key, "size", len(data))
	c.JSON(http.StatusAccepted, gin.H{"jobId": jobID, "objectKey": key})
}

func (s *Server) jobStatuses(c *gin.Context) {
	records, err := s.deps.Statuses.ListStageStatuses(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"jobId": c.Param("jobID"), "statuses": records})
}

// downloadCV serves a CV behind a signed, expiring link.
func (s *Server) downloadCV(c *gin.Context) {
	id := c.Param("candidateID")
	if !s.deps.Signer.Verify(id, c.Query("expires"), c.Query("sig")) {
		RespondError(c, http.StatusForbidden, "invalid_signature", errors.New("link invalid or expired"))
		return
	}
	cand, err := s.deps.Candidates.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if cand.CVObjectKey == "" {
		respondErr(c, fmt.Errorf("cv for candidate %s: %w", id, apperr.ErrNotFound))
		return
	}
	data, err := s.deps.Documents.GetCV(c.Request.Context(), cand.CVObjectKey)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(cand.CVObjectKey)))
	c.Data(http.StatusOK, cvtext.ContentType(cand.CVObjectKey), data)
}
