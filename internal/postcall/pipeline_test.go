// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package postcall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
)

type fakeCalls struct {
	updates   []map[string]interface{}
	followUps []*store.FollowUp
}

func (f *fakeCalls) GetCallRecord(callSID string) (*store.CallRecord, error) { return nil, nil }
func (f *fakeCalls) UpdateCallRecord(callSID string, updates map[string]interface{}) error {
	f.updates = append(f.updates, updates)
	return nil
}
func (f *fakeCalls) CreateFollowUp(fu *store.FollowUp) error {
	f.followUps = append(f.followUps, fu)
	return nil
}

type fakeContacts struct{ notes []string }

func (f *fakeContacts) AddContactNote(ctx context.Context, locationID, contactID, note string) error {
	f.notes = append(f.notes, note)
	return nil
}
func (f *fakeContacts) UpdateContactAddress(ctx context.Context, locationID, contactID, address string) error {
	return nil
}

func newPipeline(calls *fakeCalls, contacts *fakeContacts) *Pipeline {
	return New(calls, contacts, nil, nil, notifier.New("http://example.invalid", telemetry.NewNop()), telemetry.NewNop(), "loc-1", false)
}

func TestHandleIgnoresNonTranscriptionEvents(t *testing.T) {
	calls := &fakeCalls{}
	contacts := &fakeContacts{}
	p := newPipeline(calls, contacts)

	handled, err := p.Handle(context.Background(), Payload{Type: "conversation.initiated"})
	require.NoError(t, err)
	require.False(t, handled)
	require.Empty(t, calls.updates)
}

func TestHandleUpdatesCallRecordAndWritesNote(t *testing.T) {
	calls := &fakeCalls{}
	contacts := &fakeContacts{}
	p := newPipeline(calls, contacts)

	payload := Payload{Type: "post_call_transcription"}
	payload.Data.ConversationID = "conv-1"
	payload.Data.DynamicVariables = map[string]string{"callSid": "CA1", "contactId": "contact-1"}
	payload.Data.Analysis.CallSuccessful = "success"
	payload.Data.Analysis.TranscriptSummary = "Booked an appointment"

	handled, err := p.Handle(context.Background(), payload)
	require.NoError(t, err)
	require.True(t, handled)
	require.Len(t, calls.updates, 1)
	require.Len(t, contacts.notes, 1)
}

func TestHandleSkipsNoteWhenContactIDMatchesConversationID(t *testing.T) {
	calls := &fakeCalls{}
	contacts := &fakeContacts{}
	p := newPipeline(calls, contacts)

	payload := Payload{Type: "post_call_transcription"}
	payload.Data.ConversationID = "conv-1"
	payload.Data.DynamicVariables = map[string]string{"callSid": "CA1", "contactId": "conv-1"}

	_, err := p.Handle(context.Background(), payload)
	require.NoError(t, err)
	require.Empty(t, contacts.notes)
}

func TestDelayHoursForSuggestionMapsKnownValues(t *testing.T) {
	require.Equal(t, 24, delayHoursForSuggestion("24h"))
	require.Equal(t, 48, delayHoursForSuggestion("48h"))
	require.Equal(t, 168, delayHoursForSuggestion("1week"))
	require.Equal(t, 24, delayHoursForSuggestion("unexpected"))
}
