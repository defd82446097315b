// internal/server/documents_handlers.go
package server

import (
	"net/http"

	"talent-platform/internal/common/auth"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/documents"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleUploadDocument(c *gin.Context) {
	var input documents.UploadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}

	doc, err := s.documents.Upload(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	summary, err := s.documents.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) handleVerifyDocument(c *gin.Context) {
	summary, err := s.documents.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) handleOverrideDocument(c *gin.Context) {
	var input documents.OverrideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}

	summary, err := s.documents.Override(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) handleRejectDocument(c *gin.Context) {
	summary, err := s.documents.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) handleTalentSummary(c *gin.Context) {
	summary, err := s.summaries.CurrentSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleTalentDocuments(c *gin.Context) {
	docs, err := s.documents.ListByTalent(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) handleRecompute(c *gin.Context) {
	ident, ok := auth.IdentityFrom(c.Request.Context())
	if !ok || !ident.IsAdmin() {
		s.respondError(c, errors.NewForbiddenError("recompute requires the admin role"))
		return
	}

	summary, err := s.summaries.Recompute(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
