// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
)

func TestOutboundCallTwiMLRendersCustomParams(t *testing.T) {
	rec := &store.CallRecord{
		CallSID:         "CA1",
		To:              "+393331112222",
		ContactID:       "contact1",
		FirstName:       "Mario",
		FullName:        "Mario Rossi",
		Email:           "mario@example.com",
		Service:         "boiler",
		CallOptionsBlob: `{"isAbruptEndingRetry":true,"originalConversationId":"conv-9","pastCallSummary":"cut off mid-sentence"}`,
	}
	h := newTestHandlers(Deps{Calls: &fakeCallRecordStore{rec: rec}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/outgoing/outbound-call-twiml?CallSid=CA1", nil)

	h.outboundCallTwiML(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, `name="firstName" value="Mario"`)
	require.Contains(t, body, `name="contactId" value="contact1"`)
	require.Contains(t, body, `name="isAbruptEndingRetry" value="true"`)
	require.Contains(t, body, `name="originalConversationId" value="conv-9"`)
	require.Contains(t, body, `name="pastCallSummary" value="cut off mid-sentence"`)
	require.Contains(t, body, `name="service" value="boiler"`)
}

func TestOutboundCallTwiMLMissingRecordReturns404(t *testing.T) {
	h := newTestHandlers(Deps{Calls: &fakeCallRecordStore{err: errRecordNotFound}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/outgoing/outbound-call-twiml?CallSid=CA404", nil)

	h.outboundCallTwiML(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}
