// internal/server/webhooks.go
package server

import (
	"encoding/json"
	"io"
	"net/http"

	"talent-platform/internal/scoresync"

	"github.com/gin-gonic/gin"
)

// handleSignatureWebhook authenticates the provider's HMAC signature over
// the raw payload and applies the event. The provider is acknowledged with
// 200 regardless of internal outcome so it never retries forever; only a
// failed signature check is refused.
func (s *Server) handleSignatureWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"received": false})
		return
	}

	if err := s.verifier.Verify(payload, c.GetHeader("X-Signature")); err != nil {
		s.logger.Warn("webhook signature rejected", map[string]interface{}{
			"error": err,
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	event, err := s.verifier.Parse(payload)
	if err != nil {
		s.logger.Warn("webhook payload rejected", map[string]interface{}{
			"error": err,
		})
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := s.letters.HandleSignatureEvent(c.Request.Context(), event); err != nil {
		s.logger.Error("signature event handling failed", map[string]interface{}{
			"eventType":  event.EventType,
			"documentId": event.DocumentID,
			"error":      err,
		})
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleScoreSessionWebhook applies a scoring-service notification. Always
// acknowledged; the reconciler covers anything missed here.
func (s *Server) handleScoreSessionWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"received": false})
		return
	}

	var state scoresync.SessionState
	if err := json.Unmarshal(payload, &state); err != nil || state.SessionID == "" {
		s.logger.Warn("score session webhook payload rejected", map[string]interface{}{
			"error": err,
		})
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := s.sessions.HandleEvent(c.Request.Context(), state); err != nil {
		s.logger.Error("score session event handling failed", map[string]interface{}{
			"externalSessionId": state.SessionID,
			"error":             err,
		})
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
