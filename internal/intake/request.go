// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package intake implements the Intake Endpoint's business logic (spec
// §4.5): validation, routing, slot fetch and queue-row insertion. The HTTP
// adapter lives in internal/httpapi.
package intake

import "github.com/ristrutturiamolo/call-orchestrator/internal/store"

// CustomData carries the abrupt-ending-retry second-chance flags.
type CustomData struct {
	IsAbruptEndingRetry    bool   `json:"isAbruptEndingRetry"`
	OriginalConversationID string `json:"originalConversationId"`
	PastCallSummary        string `json:"pastCallSummary"`
}

// Request is the decoded intake payload (spec §4.5).
type Request struct {
	Phone       string     `json:"phone"`
	ContactID   string     `json:"contact_id"`
	FirstName   string     `json:"first_name"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	Service     string     `json:"Service"`
	FullAddress string     `json:"full_address"`
	CustomData  CustomData `json:"customData"`
}

var validServices = map[string]bool{
	store.ServiceInfissi: true,
	store.ServiceVetrate: true,
	store.ServicePergole: true,
}
