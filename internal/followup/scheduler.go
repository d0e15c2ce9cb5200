// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package followup implements the Follow-Up Scheduler (spec §4.11): an
// hourly sweep that refetches contact data and resubmits to the Intake
// Endpoint, with stuck-entry cleanup.
package followup

import (
	"context"
	"strings"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/intake"
	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
)

// permanentFailureSignatures are 4xx response-body substrings that mean the
// follow-up can never succeed and should be dropped (spec §4.11 step 5).
var permanentFailureSignatures = []string{
	"No sales representatives available",
	"not in right area",
	"Address is required",
	"service field is required",
}

// FollowUpStore is the persistence dependency.
type FollowUpStore interface {
	StuckFollowUps(now time.Time) ([]store.FollowUp, error)
	DueFollowUps(now time.Time) ([]store.FollowUp, error)
	DeleteFollowUp(id uint64) error
	MarkFollowUpFailed(id uint64) error
	LatestProvinceForContact(contactID string) (string, error)
}

// Contacts is the CRM dependency.
type Contacts interface {
	GetContact(ctx context.Context, locationID, contactID string) (*crmclient.Contact, error)
}

// IntakeResubmitter is the internal resubmission target (spec §4.11 step 4:
// "via an internal HTTP call" — modeled here as a direct in-process call to
// the same Intake Endpoint handler the HTTP route uses).
type IntakeResubmitter interface {
	Submit(ctx context.Context, req intake.Request, requestID string) intake.Outcome
}

// Scheduler runs the hourly follow-up sweep.
type Scheduler struct {
	follow     FollowUpStore
	contacts   Contacts
	intake     IntakeResubmitter
	notifier   *notifier.Notifier
	logger     telemetry.Logger
	locationID string
}

// New constructs a Scheduler.
func New(follow FollowUpStore, contacts Contacts, resubmitter IntakeResubmitter, notif *notifier.Notifier, logger telemetry.Logger, locationID string) *Scheduler {
	return &Scheduler{follow: follow, contacts: contacts, intake: resubmitter, notifier: notif, logger: logger, locationID: locationID}
}

// Run ticks hourly until ctx is cancelled (spec §5).
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep implements the full hourly cycle (spec §4.11).
func (s *Scheduler) Sweep(ctx context.Context) {
	s.cleanupStuck(ctx)

	due, err := s.follow.DueFollowUps(time.Now().UTC())
	if err != nil {
		s.logger.Errorw("followup: failed to load due follow-ups", "error", err.Error())
		return
	}

	for _, f := range due {
		s.process(ctx, f)
	}
}

func (s *Scheduler) cleanupStuck(ctx context.Context) {
	stuck, err := s.follow.StuckFollowUps(time.Now().UTC())
	if err != nil {
		s.logger.Errorw("followup: failed to load stuck follow-ups", "error", err.Error())
		return
	}
	for _, f := range stuck {
		if err := s.follow.DeleteFollowUp(f.ID); err != nil {
			s.logger.Warnw("followup: failed to delete stuck follow-up", "id", f.ID, "error", err.Error())
			continue
		}
		s.notifier.Send(ctx, notifier.Notification{
			Severity:  notifier.SeverityWarning,
			ContactID: f.ContactID,
			Service:   f.Service,
			Province:  f.Province,
			Message:   "follow-up removed as stuck (overdue with no progress)",
		})
	}
}

func (s *Scheduler) process(ctx context.Context, f store.FollowUp) {
	contact, err := s.contacts.GetContact(ctx, s.locationID, f.ContactID)
	if err != nil {
		s.markFailedAndContinue(f, err)
		return
	}

	service := resolveService(f.Service, contact)
	province := f.Province
	if province == "" {
		province, _ = s.follow.LatestProvinceForContact(f.ContactID)
	}
	if province == "" {
		province = contact.Province
	}

	req := intake.Request{
		Phone:       contact.Phone,
		ContactID:   f.ContactID,
		FirstName:   contact.FirstName,
		FullName:    contact.FullName,
		Service:     service,
		FullAddress: contact.Address,
	}

	outcome := s.intake.Submit(ctx, req, "followup-"+f.ContactID)

	switch {
	case outcome.HTTPStatus >= 200 && outcome.HTTPStatus < 300:
		if err := s.follow.DeleteFollowUp(f.ID); err != nil {
			s.logger.Warnw("followup: failed to delete resubmitted follow-up", "id", f.ID, "error", err.Error())
		}
	case outcome.HTTPStatus >= 400 && outcome.HTTPStatus < 500 && isPermanentFailure(outcome.Message):
		if err := s.follow.DeleteFollowUp(f.ID); err != nil {
			s.logger.Warnw("followup: failed to delete permanently-failed follow-up", "id", f.ID, "error", err.Error())
		}
		s.notifier.Send(ctx, notifier.Notification{
			Severity:  notifier.SeverityNormal,
			ContactID: f.ContactID,
			Service:   service,
			Province:  province,
			Message:   "follow-up dropped: permanent failure signature " + outcome.Message,
		})
	default:
		s.markFailedAndContinue(f, nil)
	}
}

func (s *Scheduler) markFailedAndContinue(f store.FollowUp, err error) {
	if markErr := s.follow.MarkFollowUpFailed(f.ID); markErr != nil {
		s.logger.Warnw("followup: failed to flag follow-up as failed", "id", f.ID, "error", markErr.Error())
	}
	if err != nil {
		s.logger.Warnw("followup: contact refetch failed", "contact_id", f.ContactID, "error", err.Error())
	}
}

func isPermanentFailure(message string) bool {
	for _, sig := range permanentFailureSignatures {
		if strings.Contains(message, sig) {
			return true
		}
	}
	return false
}

// resolveService derives the service from the saved column, else custom
// fields, else a case-insensitive tag match (spec §4.11 step 3).
func resolveService(saved string, contact *crmclient.Contact) string {
	if saved != "" {
		return saved
	}
	if contact.Service != "" {
		return contact.Service
	}
	candidates := map[string]string{
		strings.ToLower(store.ServiceInfissi): store.ServiceInfissi,
		strings.ToLower(store.ServiceVetrate): store.ServiceVetrate,
		strings.ToLower(store.ServicePergole): store.ServicePergole,
	}
	for _, tag := range contact.Tags {
		if svc, ok := candidates[strings.ToLower(tag)]; ok {
			return svc
		}
	}
	return ""
}
