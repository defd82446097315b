// internal/server/billing_handlers.go
package server

import (
	"net/http"

	"talent-platform/internal/billing"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/search"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleCreatePromoCode(c *gin.Context) {
	var input billing.CreatePromoCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}

	promo, err := s.promos.CreatePromoCode(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, promo)
}

func (s *Server) handleValidatePromoCode(c *gin.Context) {
	promo, err := s.promos.ValidatePromoCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, promo)
}

func (s *Server) handleRedeemPromoCode(c *gin.Context) {
	promo, err := s.promos.RedeemPromoCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, promo)
}

func (s *Server) handleCheckout(c *gin.Context) {
	var input struct {
		CustomerID string `json:"customerId"`
		PriceID    string `json:"priceId"`
		CouponID   string `json:"couponId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}
	if input.CustomerID == "" || input.PriceID == "" {
		s.respondError(c, errors.NewInvalidInputError("customerId and priceId are required"))
		return
	}

	session, err := s.payments.CreateCheckoutSession(c.Request.Context(), input.CustomerID, input.PriceID, input.CouponID)
	if err != nil {
		s.respondError(c, errors.NewUpstreamFailureError("payments", err))
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleBillingPortal(c *gin.Context) {
	var input struct {
		CustomerID string `json:"customerId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}
	if input.CustomerID == "" {
		s.respondError(c, errors.NewInvalidInputError("customerId is required"))
		return
	}

	url, err := s.payments.CreateBillingPortalSession(c.Request.Context(), input.CustomerID)
	if err != nil {
		s.respondError(c, errors.NewUpstreamFailureError("payments", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) handleCreateScoreSession(c *gin.Context) {
	var input struct {
		TalentID string `json:"talentId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}
	if input.TalentID == "" {
		s.respondError(c, errors.NewInvalidInputError("talentId is required"))
		return
	}

	session, err := s.sessions.Create(c.Request.Context(), input.TalentID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) handleGetScoreSession(c *gin.Context) {
	session, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleSearchTalents(c *gin.Context) {
	var query search.Query
	if err := c.ShouldBindQuery(&query); err != nil {
		s.respondError(c, errors.NewInvalidInputError("invalid query parameters"))
		return
	}

	hits, err := s.search.Search(c.Request.Context(), query)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"talents": hits})
}
