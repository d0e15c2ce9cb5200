// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package crmclient

import (
	"context"
	"fmt"
	"time"
)

// AppointmentRequest is the tuple the Booking Coordinator sends to the CRM
// appointment endpoint (spec §4.9).
type AppointmentRequest struct {
	CalendarID   string
	LocationID   string
	ContactID    string
	StartTimeUTC time.Time
	Address      string
	UserID       string // optional rep assignment
}

// AppointmentResponse is the CRM's 2xx body on a successful booking.
type AppointmentResponse struct {
	AppointmentID string `json:"id"`
	Status        string `json:"status"`
}

// BookAppointment calls the CRM appointment endpoint. A non-2xx response is
// returned as an error that the caller inspects for the §4.9 fallback path.
func (c *Client) BookAppointment(ctx context.Context, req AppointmentRequest) (*AppointmentResponse, error) {
	authed, err := c.authorizedRequest(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"calendarId":   req.CalendarID,
		"locationId":   req.LocationID,
		"contactId":    req.ContactID,
		"startTime":    req.StartTimeUTC.Format(time.RFC3339),
		"locationType": "Address",
		"address":      req.Address,
	}
	if req.UserID != "" {
		body["userId"] = req.UserID
	}

	var result AppointmentResponse
	resp, err := authed.SetBody(body).SetResult(&result).Post("/calendars/events/appointments")
	if err != nil {
		return nil, fmt.Errorf("crm book appointment: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("crm book appointment: status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return &result, nil
}

// Contact is the subset of CRM contact fields this module reads/writes.
type Contact struct {
	ID          string            `json:"id"`
	Phone       string            `json:"phone"`
	FirstName   string            `json:"firstName"`
	FullName    string            `json:"fullName"`
	Address     string            `json:"address"`
	Province    string            `json:"province"`
	Service     string            `json:"service"`
	Tags        []string          `json:"tags"`
	CustomField map[string]string `json:"customField"`
}

// GetContact fetches a contact by id.
func (c *Client) GetContact(ctx context.Context, locationID, contactID string) (*Contact, error) {
	authed, err := c.authorizedRequest(ctx, locationID)
	if err != nil {
		return nil, err
	}
	var contact Contact
	resp, err := authed.SetResult(&contact).Get("/contacts/" + contactID)
	if err != nil {
		return nil, fmt.Errorf("crm get contact %s: %w", contactID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("crm get contact %s: status %d", contactID, resp.StatusCode())
	}
	return &contact, nil
}

// UpdateContactAddress updates a contact's address field.
func (c *Client) UpdateContactAddress(ctx context.Context, locationID, contactID, address string) error {
	authed, err := c.authorizedRequest(ctx, locationID)
	if err != nil {
		return err
	}
	resp, err := authed.SetBody(map[string]string{"address": address}).Put("/contacts/" + contactID)
	if err != nil {
		return fmt.Errorf("crm update address %s: %w", contactID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("crm update address %s: status %d", contactID, resp.StatusCode())
	}
	return nil
}

// AddContactNote attaches a structured note to a contact.
func (c *Client) AddContactNote(ctx context.Context, locationID, contactID, note string) error {
	authed, err := c.authorizedRequest(ctx, locationID)
	if err != nil {
		return err
	}
	resp, err := authed.SetBody(map[string]string{"body": note}).Post("/contacts/" + contactID + "/notes")
	if err != nil {
		return fmt.Errorf("crm add note %s: %w", contactID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("crm add note %s: status %d", contactID, resp.StatusCode())
	}
	return nil
}

// AddToWorkflow tags a contact into a CRM workflow (e.g. "no-sales-rep",
// "call-scheduled" per spec §4.5).
func (c *Client) AddToWorkflow(ctx context.Context, locationID, contactID, workflowID string) error {
	authed, err := c.authorizedRequest(ctx, locationID)
	if err != nil {
		return err
	}
	resp, err := authed.SetBody(map[string]string{"contactId": contactID}).
		Post("/workflows/" + workflowID + "/contacts")
	if err != nil {
		return fmt.Errorf("crm add to workflow %s: %w", workflowID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("crm add to workflow %s: status %d", workflowID, resp.StatusCode())
	}
	return nil
}
