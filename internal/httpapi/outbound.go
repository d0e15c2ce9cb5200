// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ristrutturiamolo/call-orchestrator/internal/intake"
	"github.com/ristrutturiamolo/call-orchestrator/internal/retry"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telephony"
)

// outboundCall implements `POST /outgoing/outbound-call` (spec §4.5/§6).
func (h *handlers) outboundCall(c *gin.Context) {
	var req intake.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	outcome := h.deps.Intake.Submit(c.Request.Context(), req, requestID(c))
	if outcome.QueueID != 0 {
		c.JSON(outcome.HTTPStatus, gin.H{"queueId": outcome.QueueID})
		return
	}
	c.JSON(outcome.HTTPStatus, gin.H{"error": outcome.Message})
}

// callOptionsSeed mirrors intake's marshalCallOptionsSeed shape, read back
// here to repopulate the TwiML custom parameters (spec §4.8 step 1).
type callOptionsSeed struct {
	IsAbruptEndingRetry    bool   `json:"isAbruptEndingRetry"`
	OriginalConversationID string `json:"originalConversationId"`
	PastCallSummary        string `json:"pastCallSummary"`
}

// callStatusBody is the telephony provider's status-callback webhook form.
type callStatusBody struct {
	CallSid    string `form:"CallSid"`
	CallStatus string `form:"CallStatus"`
	AnsweredBy string `form:"AnsweredBy"`
	To         string `form:"To"`
}

// callStatus implements `POST /outgoing/call-status` (spec §6: "Always
// 200").
func (h *handlers) callStatus(c *gin.Context) {
	var body callStatusBody
	_ = c.ShouldBind(&body)

	h.deps.Retry.Handle(c.Request.Context(), retry.StatusCallback{
		CallSID:    body.CallSid,
		CallStatus: body.CallStatus,
		AnsweredBy: body.AnsweredBy,
		To:         body.To,
	})
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// outboundCallTwiML implements `ALL /outgoing/outbound-call-twiml` (spec
// §6): the telephony provider fetches this when the placed call connects,
// and the returned document carries the custom parameters the Media
// Bridge's telephony `start` frame will read (spec §4.8 step 1).
func (h *handlers) outboundCallTwiML(c *gin.Context) {
	callSID := c.Request.URL.Query().Get("CallSid")
	if callSID == "" {
		callSID = c.PostForm("CallSid")
	}

	rec, err := h.deps.Calls.GetCallRecord(callSID)
	if err != nil {
		h.deps.Logger.Warnw("outbound-call-twiml: call record not found", "call_sid", callSID, "error", err.Error())
		c.String(http.StatusNotFound, "")
		return
	}

	var seed callOptionsSeed
	if rec.CallOptionsBlob != "" {
		if err := json.Unmarshal([]byte(rec.CallOptionsBlob), &seed); err != nil {
			h.deps.Logger.Warnw("outbound-call-twiml: call options blob unparseable", "call_sid", callSID, "error", err.Error())
		}
	}

	params := map[string]string{
		"contactId":    rec.ContactID,
		"firstName":    rec.FirstName,
		"fullName":     rec.FullName,
		"email":        rec.Email,
		"phone":        rec.To,
		"service":      rec.Service,
		"callSid":      callSID,
	}
	if seed.IsAbruptEndingRetry {
		params["isAbruptEndingRetry"] = "true"
		params["pastCallSummary"] = seed.PastCallSummary
		params["originalConversationId"] = seed.OriginalConversationID
	}

	body, err := telephony.ConnectStreamTwiML(h.mediaStreamURL(c, "/outgoing/outbound-media-stream"), params)
	if err != nil {
		h.deps.Logger.Errorw("outbound-call-twiml: failed to render twiml", "call_sid", callSID, "error", err.Error())
		c.String(http.StatusInternalServerError, "")
		return
	}
	c.Data(http.StatusOK, "application/xml", body)
}

// outboundMediaStream implements `WS /outgoing/outbound-media-stream`.
func (h *handlers) outboundMediaStream(c *gin.Context) {
	h.deps.Bridge.ServeHTTP(c)
}

// mediaStreamURL derives the wss:// URL the telephony provider should open
// for this call's media stream, from the request's own host (spec §4.8:
// the TwiML document "carries" the bridge URL).
func (h *handlers) mediaStreamURL(c *gin.Context, path string) string {
	return "wss://" + c.Request.Host + path
}
