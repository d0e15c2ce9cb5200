// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package followup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/intake"
	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
)

type fakeFollowStore struct {
	due     []store.FollowUp
	stuck   []store.FollowUp
	deleted []uint64
	failed  []uint64
}

func (f *fakeFollowStore) StuckFollowUps(now time.Time) ([]store.FollowUp, error) { return f.stuck, nil }
func (f *fakeFollowStore) DueFollowUps(now time.Time) ([]store.FollowUp, error)   { return f.due, nil }
func (f *fakeFollowStore) DeleteFollowUp(id uint64) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeFollowStore) MarkFollowUpFailed(id uint64) error {
	f.failed = append(f.failed, id)
	return nil
}
func (f *fakeFollowStore) LatestProvinceForContact(contactID string) (string, error) { return "", nil }

type fakeContacts struct{ contact *crmclient.Contact }

func (f fakeContacts) GetContact(ctx context.Context, locationID, contactID string) (*crmclient.Contact, error) {
	return f.contact, nil
}

type fakeResubmitter struct{ outcome intake.Outcome }

func (f fakeResubmitter) Submit(ctx context.Context, req intake.Request, requestID string) intake.Outcome {
	return f.outcome
}

func newNotifier() *notifier.Notifier {
	return notifier.New("http://example.invalid", telemetry.NewNop())
}

func TestSweepDeletesStuckFollowUps(t *testing.T) {
	fs := &fakeFollowStore{stuck: []store.FollowUp{{ID: 1, ContactID: "c1"}}}
	s := New(fs, fakeContacts{contact: &crmclient.Contact{}}, fakeResubmitter{}, newNotifier(), telemetry.NewNop(), "loc")
	s.Sweep(context.Background())
	require.Contains(t, fs.deleted, uint64(1))
}

func TestProcessDeletesOnSuccessfulResubmission(t *testing.T) {
	fs := &fakeFollowStore{due: []store.FollowUp{{ID: 2, ContactID: "c2"}}}
	s := New(fs, fakeContacts{contact: &crmclient.Contact{Phone: "+391234", Address: "Via Test 1"}},
		fakeResubmitter{outcome: intake.Outcome{HTTPStatus: 202, QueueID: 9}}, newNotifier(), telemetry.NewNop(), "loc")
	s.Sweep(context.Background())
	require.Contains(t, fs.deleted, uint64(2))
}

func TestProcessDropsOnPermanentFailureSignature(t *testing.T) {
	fs := &fakeFollowStore{due: []store.FollowUp{{ID: 3, ContactID: "c3"}}}
	s := New(fs, fakeContacts{contact: &crmclient.Contact{}},
		fakeResubmitter{outcome: intake.Outcome{HTTPStatus: 400, Message: "No sales representatives available"}},
		newNotifier(), telemetry.NewNop(), "loc")
	s.Sweep(context.Background())
	require.Contains(t, fs.deleted, uint64(3))
}

func TestProcessKeepsOnTransientFailure(t *testing.T) {
	fs := &fakeFollowStore{due: []store.FollowUp{{ID: 4, ContactID: "c4"}}}
	s := New(fs, fakeContacts{contact: &crmclient.Contact{}},
		fakeResubmitter{outcome: intake.Outcome{HTTPStatus: 500, Message: "internal error"}},
		newNotifier(), telemetry.NewNop(), "loc")
	s.Sweep(context.Background())
	require.Empty(t, fs.deleted)
	require.Contains(t, fs.failed, uint64(4))
}

func TestResolveServicePrefersSavedColumn(t *testing.T) {
	require.Equal(t, "Pergole", resolveService("Pergole", &crmclient.Contact{Service: "Infissi"}))
}

func TestResolveServiceFallsBackToTags(t *testing.T) {
	require.Equal(t, store.ServiceVetrate, resolveService("", &crmclient.Contact{Tags: []string{"lead", "vetrate"}}))
}
