// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package postcall implements the Post-Call Pipeline (spec §4.10):
// records the outcome of a voice-AI post-call webhook whose signature the
// HTTP layer has already verified, and runs the asynchronous Missed-Action
// Analysis recovery flow.
package postcall

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/booking"
	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/llmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
)

// Payload is the relevant subset of the voice-AI provider's
// post_call_transcription webhook body (spec §4.10).
type Payload struct {
	Type string `json:"type"`
	Data struct {
		ConversationID  string            `json:"conversation_id"`
		DynamicVariables map[string]string `json:"dynamic_variables"`
		Transcript       []TranscriptTurn  `json:"transcript"`
		Analysis         struct {
			CallSuccessful   string `json:"call_successful"` // success | partial | failure
			TranscriptSummary string `json:"transcript_summary"`
		} `json:"analysis"`
		ToolCalls []string `json:"tool_calls"`
	} `json:"data"`
}

// TranscriptTurn is a single transcript line.
type TranscriptTurn struct {
	Role string `json:"role"`
	Text string `json:"message"`
}

// CallStore is the persistence dependency.
type CallStore interface {
	GetCallRecord(callSID string) (*store.CallRecord, error)
	UpdateCallRecord(callSID string, updates map[string]interface{}) error
	CreateFollowUp(f *store.FollowUp) error
}

// Contacts is the CRM dependency for note-writing and address updates.
type Contacts interface {
	AddContactNote(ctx context.Context, locationID, contactID, note string) error
	UpdateContactAddress(ctx context.Context, locationID, contactID, address string) error
}

// Pipeline wires together webhook handling and the asynchronous
// missed-action recovery flow.
type Pipeline struct {
	calls      CallStore
	contacts   Contacts
	booker     *booking.Coordinator
	llm        *llmclient.Client
	notifier   *notifier.Notifier
	logger     telemetry.Logger
	locationID string
	enableAnalysis bool
}

var _ Contacts = (*crmclient.Client)(nil)

// New constructs a Pipeline.
func New(calls CallStore, contacts Contacts, booker *booking.Coordinator, llm *llmclient.Client, notif *notifier.Notifier, logger telemetry.Logger, locationID string, enableAnalysis bool) *Pipeline {
	return &Pipeline{
		calls: calls, contacts: contacts, booker: booker, llm: llm, notifier: notif,
		logger: logger, locationID: locationID, enableAnalysis: enableAnalysis,
	}
}

// callSIDFromPayload resolves the call sid this webhook refers to. The
// voice-AI provider threads it back through the dynamic-variables bag the
// Media Bridge injected at call start (spec §4.8/§4.10).
func callSIDFromPayload(p Payload) string {
	return p.Data.DynamicVariables["callSid"]
}

// Handle processes an already-signature-verified webhook body (spec
// §4.10). It returns quickly; Missed-Action Analysis is launched as a
// separate goroutine so the HTTP handler is never blocked on it (spec §5).
func (p *Pipeline) Handle(ctx context.Context, payload Payload) (handled bool, err error) {
	if payload.Type != "post_call_transcription" {
		return false, nil
	}

	callSID := callSIDFromPayload(payload)
	contactID := payload.Data.DynamicVariables["contactId"]
	conversationID := payload.Data.ConversationID

	summary := payload.Data.Analysis.TranscriptSummary
	if summary == "" {
		summary = fmt.Sprintf("%d transcript turns, no model summary available", len(payload.Data.Transcript))
	}

	if callSID != "" {
		if err := p.calls.UpdateCallRecord(callSID, map[string]interface{}{
			"status":             outcomeStatus(payload.Data.Analysis.CallSuccessful),
			"conversation_id":    conversationID,
			"transcript_summary": summary,
		}); err != nil {
			p.logger.Warnw("postcall: failed to update call record", "call_sid", callSID, "error", err.Error())
		}
	}

	if contactID != "" && contactID != conversationID {
		note := fmt.Sprintf("Esito chiamata: %s. Riepilogo: %s", italianOutcome(payload.Data.Analysis.CallSuccessful), summary)
		if err := p.contacts.AddContactNote(ctx, p.locationID, contactID, note); err != nil {
			p.logger.Warnw("postcall: failed to write contact note", "contact_id", contactID, "error", err.Error())
		}
	}

	p.notifier.Send(ctx, notifier.Notification{
		Severity:  notifier.SeverityNormal,
		ContactID: contactID,
		Message:   fmt.Sprintf("call %s finished: %s", callSID, payload.Data.Analysis.CallSuccessful),
	})

	if p.enableAnalysis && shouldAnalyze(payload, contactID, conversationID) {
		go p.runMissedActionAnalysis(context.Background(), payload, callSID, contactID)
	}

	return true, nil
}

func shouldAnalyze(payload Payload, contactID, conversationID string) bool {
	outcome := payload.Data.Analysis.CallSuccessful
	if outcome != "success" && outcome != "partial" {
		return false
	}
	if contactID == "" || contactID == conversationID {
		return false
	}
	return len(payload.Data.Transcript) > 0
}

func outcomeStatus(callSuccessful string) string {
	switch callSuccessful {
	case "success":
		return "completed_success"
	case "partial":
		return "completed_partial"
	default:
		return "completed_failure"
	}
}

func italianOutcome(callSuccessful string) string {
	switch callSuccessful {
	case "success":
		return "riuscita"
	case "partial":
		return "parziale"
	default:
		return "fallita"
	}
}

// delayHoursForSuggestion translates a model's suggestedDelay into hours
// (spec §4.10: "24h|48h|1week" → 24/48/168).
func delayHoursForSuggestion(suggestedDelay string) int {
	switch suggestedDelay {
	case "48h":
		return 48
	case "1week":
		return 168
	default:
		return 24
	}
}

func transcriptText(turns []TranscriptTurn) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// runMissedActionAnalysis implements spec §4.10's asynchronous recovery
// flow. Called in its own goroutine with a background context so it
// survives the HTTP handler returning.
func (p *Pipeline) runMissedActionAnalysis(ctx context.Context, payload Payload, callSID, contactID string) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	result, err := p.llm.AnalyzeMissedActions(ctx, llmclient.MissedActionRequest{
		Transcript:       transcriptText(payload.Data.Transcript),
		ToolsAlreadyUsed: payload.Data.ToolCalls,
		ContactContext:   payload.Data.DynamicVariables,
	})
	if err != nil {
		p.logger.Warnw("postcall: missed-action analysis failed", "call_sid", callSID, "error", err.Error())
		return
	}

	alreadyBooked := containsTool(payload.Data.ToolCalls, "book_appointment")

	bookedHere := false
	if result.NeedsAppointment && !alreadyBooked && result.AppointmentDetails != nil {
		bookedHere = p.tryBookFromAnalysis(ctx, contactID, *result.AppointmentDetails)
	}

	if !bookedHere && result.NeedsFollowUp && result.FollowUpDetails != nil {
		p.scheduleFollowUp(contactID, *result.FollowUpDetails)
	}

	if result.NeedsContactUpdate && result.ContactUpdate != nil {
		p.applyContactUpdate(ctx, contactID, *result.ContactUpdate)
	}
}

func containsTool(tools []string, name string) bool {
	for _, t := range tools {
		if t == name {
			return true
		}
	}
	return false
}

func (p *Pipeline) tryBookFromAnalysis(ctx context.Context, contactID string, details llmclient.AppointmentDetails) bool {
	startTime, err := time.Parse(time.RFC3339, details.PreferredDateTime)
	if err != nil {
		p.logger.Warnw("postcall: missed-action appointment time unparseable", "value", details.PreferredDateTime, "error", err.Error())
		return false
	}

	outcome := p.booker.Book(ctx, booking.Request{StartTimeUTC: startTime, ContactID: contactID})
	if outcome.Booked != nil {
		return true
	}
	if outcome.NoAlternatives || outcome.Err != nil {
		p.scheduleFollowUp(contactID, llmclient.FollowUpDetails{SuggestedDelay: "24h", Reasoning: "missed-action booking attempt found no slots"})
	}
	return false
}

func (p *Pipeline) scheduleFollowUp(contactID string, details llmclient.FollowUpDetails) {
	hours := delayHoursForSuggestion(details.SuggestedDelay)
	f := &store.FollowUp{
		ContactID:     contactID,
		FollowUpAtUTC: time.Now().UTC().Add(time.Duration(hours) * time.Hour),
		Status:        store.FollowUpStatusPending,
	}
	if err := p.calls.CreateFollowUp(f); err != nil {
		p.logger.Warnw("postcall: failed to schedule follow-up", "contact_id", contactID, "error", err.Error())
	}
}

func (p *Pipeline) applyContactUpdate(ctx context.Context, contactID string, details llmclient.ContactUpdateDetails) {
	if details.NewAddress != "" {
		if err := p.contacts.UpdateContactAddress(ctx, p.locationID, contactID, details.NewAddress); err != nil {
			p.logger.Warnw("postcall: failed to apply missed-action address update", "contact_id", contactID, "error", err.Error())
		}
	}
	note := strings.TrimSpace(details.AdditionalNotes + " " + details.ServiceDetails)
	if note != "" {
		if err := p.contacts.AddContactNote(ctx, p.locationID, contactID, note); err != nil {
			p.logger.Warnw("postcall: failed to append missed-action notes", "contact_id", contactID, "error", err.Error())
		}
	}
}
