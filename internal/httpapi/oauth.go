// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// oauthAuth implements `GET /gohighlevel/auth` (spec §6): kicks off the
// CRM's authorization-code dance, redirecting to the CRM's consent screen.
func (h *handlers) oauthAuth(c *gin.Context) {
	c.Redirect(http.StatusFound, h.deps.CRM.AuthCodeURL(h.cfg.LocationID))
}

// oauthCallback implements `GET /hl/callback` (spec §6): exchanges the
// authorization code for the first access/refresh token pair.
func (h *handlers) oauthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	if err := h.deps.CRM.ExchangeCode(c.Request.Context(), code, h.cfg.LocationID); err != nil {
		h.deps.Logger.Errorw("oauth callback: token exchange failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token exchange failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "authorized"})
}
