// internal/server/letters_handlers.go
package server

import (
	"context"
	"net/http"

	"talent-platform/internal/common/auth"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/letters"
	"talent-platform/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleCreateLetter(c *gin.Context) {
	var input letters.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}

	letter, err := s.letters.Create(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, letter)
}

// handleListLetters serves each role its own view: admins the review queue,
// employers their letters, talents the letters delivered to them.
func (s *Server) handleListLetters(c *gin.Context) {
	ident, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		s.respondError(c, errors.NewUnauthorizedError("no session"))
		return
	}

	var list []*models.InterestLetter
	var err error
	switch ident.Role {
	case auth.RoleAdmin:
		list, err = s.letters.ListPendingReview(c.Request.Context())
	case auth.RoleEmployer:
		list, err = s.letters.ListByEmployer(c.Request.Context(), ident.UserID)
	default:
		list, err = s.letters.ListForTalent(c.Request.Context(), ident.UserID)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"letters": list})
}

func (s *Server) handleGetLetter(c *gin.Context) {
	ident, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		s.respondError(c, errors.NewUnauthorizedError("no session"))
		return
	}

	letter, err := s.letters.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ident.IsAdmin() && letter.EmployerID != ident.UserID && letter.TalentID != ident.UserID {
		s.respondError(c, errors.NewForbiddenError("letter belongs to another party"))
		return
	}
	c.JSON(http.StatusOK, letter)
}

func (s *Server) handleSubmitLetter(c *gin.Context) {
	s.letterAction(c, s.letters.Submit)
}

func (s *Server) handleApproveLetter(c *gin.Context) {
	s.letterAction(c, s.letters.Approve)
}

func (s *Server) handleRejectLetter(c *gin.Context) {
	s.letterAction(c, s.letters.Reject)
}

func (s *Server) handleBeginAdminReview(c *gin.Context) {
	s.letterAction(c, s.letters.BeginAdminReview)
}

func (s *Server) handleForwardLetter(c *gin.Context) {
	s.letterAction(c, s.letters.Forward)
}

func (s *Server) handleRequestSignature(c *gin.Context) {
	var input struct {
		SignerEmail string `json:"signerEmail"`
		SignerName  string `json:"signerName"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}

	err := s.letters.RequestSignature(c.Request.Context(), c.Param("id"), input.SignerEmail, input.SignerName)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "requested"})
}

func (s *Server) letterAction(c *gin.Context, action func(ctx context.Context, letterID string) error) {
	if err := action(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	letter, err := s.letters.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, letter)
}
