// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/postcall"
)

// elevenlabsWebhook implements `POST /elevenlabs/webhook` (spec §4.10/§6):
// signed post-call webhook delivery from the voice-AI provider.
func (h *handlers) elevenlabsWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if h.deps.VoiceAI.WebhookSecretConfigured() {
		sig := c.GetHeader("elevenlabs-signature")
		if err := h.deps.VoiceAI.VerifyWebhookSignature(sig, body, time.Now().UTC()); err != nil {
			h.deps.Logger.Warnw("elevenlabs webhook: signature rejected",
				"error", err.Error(),
				"remote_ip", c.ClientIP(),
				"user_agent", c.Request.UserAgent(),
			)
			if h.deps.Notifier != nil {
				h.deps.Notifier.Send(c.Request.Context(), notifier.Notification{
					Severity: notifier.SeverityFatal,
					Message: fmt.Sprintf("elevenlabs webhook: signature rejected from %s (%s): %s",
						c.ClientIP(), c.Request.UserAgent(), err.Error()),
				})
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	} else {
		h.deps.Logger.Warnw("elevenlabs webhook: signature validation skipped, no secret configured")
	}

	var payload postcall.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook body"})
		return
	}

	handled, err := h.deps.Postcall.Handle(c.Request.Context(), payload)
	if err != nil {
		h.deps.Logger.Errorw("elevenlabs webhook: handling failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	if !handled {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
