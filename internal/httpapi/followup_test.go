// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/followup"
	"github.com/ristrutturiamolo/call-orchestrator/internal/intake"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
)

func TestCreateFollowUpPersists(t *testing.T) {
	creator := &fakeFollowUpCreator{}
	h := newTestHandlers(Deps{FollowUps: creator})

	body := `{"contactId":"contact1","followUpDateTime":"03-08-2026 09:00"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/followup", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.createFollowUp(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, creator.created, 1)
	require.Equal(t, "contact1", creator.created[0].ContactID)
	require.Equal(t, store.FollowUpStatusPending, creator.created[0].Status)
}

func TestCreateFollowUpRejectsBadDateTime(t *testing.T) {
	h := newTestHandlers(Deps{FollowUps: &fakeFollowUpCreator{}})

	body := `{"contactId":"contact1","followUpDateTime":"whenever"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/followup", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.createFollowUp(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeFollowUpStore struct{}

func (fakeFollowUpStore) StuckFollowUps(now time.Time) ([]store.FollowUp, error)  { return nil, nil }
func (fakeFollowUpStore) DueFollowUps(now time.Time) ([]store.FollowUp, error)    { return nil, nil }
func (fakeFollowUpStore) DeleteFollowUp(id uint64) error                          { return nil }
func (fakeFollowUpStore) MarkFollowUpFailed(id uint64) error                      { return nil }
func (fakeFollowUpStore) LatestProvinceForContact(contactID string) (string, error) {
	return "", nil
}

type fakeContacts struct{}

func (fakeContacts) GetContact(ctx context.Context, locationID, contactID string) (*crmclient.Contact, error) {
	return &crmclient.Contact{}, nil
}

type fakeIntakeResubmitter struct{}

func (fakeIntakeResubmitter) Submit(ctx context.Context, req intake.Request, requestID string) intake.Outcome {
	return intake.Outcome{}
}

func TestTriggerFollowUpRunsSweepWithoutError(t *testing.T) {
	sched := followup.New(fakeFollowUpStore{}, fakeContacts{}, fakeIntakeResubmitter{}, nil, telemetry.NewNop(), "loc1")
	h := newTestHandlers(Deps{Followup: sched})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/followup/trigger", nil)

	h.triggerFollowUp(c)

	require.Equal(t, http.StatusOK, w.Code)
}
