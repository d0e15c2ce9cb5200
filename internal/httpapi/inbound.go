// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// incomingCallBody is the telephony provider's inbound-call webhook form.
type incomingCallBody struct {
	CallSid string `form:"CallSid"`
	From    string `form:"From"`
}

// inboundStatusBody is the telephony provider's inbound status-callback
// webhook form.
type inboundStatusBody struct {
	CallSid    string `form:"CallSid"`
	CallStatus string `form:"CallStatus"`
}

// incomingCall implements `POST /incoming/incoming-call` (spec §4.12/§6).
func (h *handlers) incomingCall(c *gin.Context) {
	var body incomingCallBody
	_ = c.ShouldBind(&body)

	twiml, err := h.deps.Inbound.Answer(c.Request.Context(), body.CallSid, body.From)
	if err != nil {
		h.deps.Logger.Errorw("incoming-call: failed to answer", "call_sid", body.CallSid, "error", err.Error())
		c.String(http.StatusInternalServerError, "")
		return
	}
	c.Data(http.StatusOK, "application/xml", twiml)
}

// inboundMediaStream implements `WS /incoming/inbound-media-stream`. It
// shares the outbound bridge entrypoint: the Manager branches inbound vs.
// outbound internally on whether the telephony start frame carries a
// `contactId` custom parameter (spec §4.12).
func (h *handlers) inboundMediaStream(c *gin.Context) {
	h.deps.Bridge.ServeHTTP(c)
}

// inboundCallStatus implements `POST /incoming/inbound-call-status`. The
// inbound lifecycle has no retry schedule (spec §4.12 carries no mention of
// one), so this only mirrors the provider's status onto the row; it is
// always 200.
func (h *handlers) inboundCallStatus(c *gin.Context) {
	var body inboundStatusBody
	_ = c.ShouldBind(&body)

	if body.CallSid != "" && body.CallStatus != "" {
		if err := h.deps.Incoming.UpdateIncomingCall(body.CallSid, map[string]interface{}{"status": body.CallStatus}); err != nil {
			h.deps.Logger.Warnw("inbound-call-status: failed to update incoming call", "call_sid", body.CallSid, "error", err.Error())
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
