// internal/server/router.go
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the full route tree. Webhook routes skip bearer auth; their
// authentication is the provider's payload signature.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestMetrics())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/signature", s.handleSignatureWebhook)
		webhooks.POST("/score-sessions", s.handleScoreSessionWebhook)
	}

	api := router.Group("/api/v1")
	api.Use(s.authRequired())
	{
		api.POST("/documents", s.handleUploadDocument)
		api.GET("/documents/:id", s.handleGetDocument)
		api.DELETE("/documents/:id", s.handleDeleteDocument)
		api.POST("/documents/:id/verify", s.handleVerifyDocument)
		api.POST("/documents/:id/override", s.handleOverrideDocument)
		api.POST("/documents/:id/reject", s.handleRejectDocument)

		api.GET("/talents/:id/summary", s.handleTalentSummary)
		api.GET("/talents/:id/documents", s.handleTalentDocuments)
		api.POST("/talents/:id/recompute", s.handleRecompute)

		api.POST("/letters", s.handleCreateLetter)
		api.GET("/letters", s.handleListLetters)
		api.GET("/letters/:id", s.handleGetLetter)
		api.POST("/letters/:id/submit", s.handleSubmitLetter)
		api.POST("/letters/:id/approve", s.handleApproveLetter)
		api.POST("/letters/:id/reject", s.handleRejectLetter)
		api.POST("/letters/:id/request-signature", s.handleRequestSignature)
		api.POST("/letters/:id/begin-review", s.handleBeginAdminReview)
		api.POST("/letters/:id/forward", s.handleForwardLetter)

		api.POST("/promo-codes", s.handleCreatePromoCode)
		api.GET("/promo-codes/:code/validate", s.handleValidatePromoCode)
		api.POST("/promo-codes/:code/redeem", s.handleRedeemPromoCode)

		api.POST("/billing/checkout", s.handleCheckout)
		api.POST("/billing/portal", s.handleBillingPortal)

		api.POST("/score-sessions", s.handleCreateScoreSession)
		api.GET("/score-sessions/:id", s.handleGetScoreSession)

		api.GET("/search/talents", s.handleSearchTalents)
	}

	return router
}
