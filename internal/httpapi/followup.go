// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
)

type createFollowUpBody struct {
	ContactID       string `json:"contactId"`
	FollowUpDateTime string `json:"followUpDateTime"`
}

// createFollowUp implements `POST /followup` (spec §6: body
// `{contactId, followUpDateTime: "DD-MM-YYYY HH:mm"}`, 201 with the parsed
// UTC instant).
func (h *handlers) createFollowUp(c *gin.Context) {
	var body createFollowUpBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	followUpAt, err := parseFlexibleDateTime(body.FollowUpDateTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "followUpDateTime must be DD-MM-YYYY HH:mm"})
		return
	}

	f := &store.FollowUp{ContactID: body.ContactID, FollowUpAtUTC: followUpAt, Status: store.FollowUpStatusPending}
	if err := h.deps.FollowUps.CreateFollowUp(f); err != nil {
		h.deps.Logger.Errorw("followup: failed to persist", "contact_id", body.ContactID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule follow-up"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"followUpAtUtc": followUpAt})
}

// triggerFollowUp implements `POST /followup/trigger` (spec §6: "force a
// sweep").
func (h *handlers) triggerFollowUp(c *gin.Context) {
	h.deps.Followup.Sweep(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "sweep triggered"})
}
