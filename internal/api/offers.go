package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

type offerStatusRequest struct {
	Status model.OfferStatus `json:"status"`
}

func (s *Server) listOffers(c *gin.Context) {
	offers, err := s.deps.Offers.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"offers": offers})
}

func (s *Server) latestOffer(c *gin.Context) {
	o, err := s.deps.Offers.Latest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, o)
}

func (s *Server) createOffer(c *gin.Context) {
	var fields model.OfferFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	o, err := s.deps.Offers.CreateDraft(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) updateOffer(c *gin.Context) {
	var fields model.OfferFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	o, err := s.deps.Offers.UpdateDraft(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, o)
}

// sendOffer reports a failed stage move alongside the committed offer.
func (s *Server) sendOffer(c *gin.Context) {
	o, err := s.deps.Offers.Send(c.Request.Context(), c.Param("id"))
	if err != nil && o == nil {
		respondErr(c, err)
		return
	}
	body := gin.H{"offer": o}
	if err != nil {
		body["warning"] = err.Error()
	}
	RespondOK(c, body)
}

func (s *Server) lockOffer(c *gin.Context) {
	o, err := s.deps.Offers.Lock(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, o)
}

func (s *Server) updateOfferStatus(c *gin.Context) {
	var req offerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	o, err := s.deps.Offers.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil && o == nil {
		respondErr(c, err)
		return
	}
	body := gin.H{"offer": o}
	if err != nil {
		body["warning"] = err.Error()
	}
	RespondOK(c, body)
}
