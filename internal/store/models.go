// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package store is the embedded relational persistence layer (spec §4.2):
// one SQLite file, idempotent schema creation, and the claim-and-update
// primitives the queue worker and retry scheduler depend on.
package store

import "time"

// Queue entry lifecycle states (spec §3 CallQueueEntry).
const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusFailed     = "failed"
	QueueStatusCompleted  = "completed"
)

// Service values accepted by the intake endpoint (spec §4.5).
const (
	ServiceInfissi = "Infissi"
	ServiceVetrate = "Vetrate"
	ServicePergole = "Pergole"
)

// CallQueueEntry is a unit of work awaiting a placed call (spec §3).
type CallQueueEntry struct {
	ID                     uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ContactID              string    `gorm:"column:contact_id;type:varchar(64);not null;index" json:"contactId"`
	PhoneNumber            string    `gorm:"column:phone_number;type:varchar(32);not null" json:"phoneNumber"`
	FirstName              string    `gorm:"column:first_name;type:varchar(128)" json:"firstName"`
	FullName               string    `gorm:"column:full_name;type:varchar(256)" json:"fullName"`
	Email                  string    `gorm:"column:email;type:varchar(256)" json:"email"`
	Service                string    `gorm:"column:service;type:varchar(32);not null" json:"service"`
	Province               *string   `gorm:"column:province;type:varchar(2)" json:"province"`
	RetryStage             int       `gorm:"column:retry_stage;not null;default:0" json:"retryStage"`
	Status                 string    `gorm:"column:status;type:varchar(16);not null;default:pending;index" json:"status"`
	ScheduledAt            time.Time `gorm:"column:scheduled_at;not null;index" json:"scheduledAt"`
	CreatedAt              time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	LastAttemptAt          *time.Time `gorm:"column:last_attempt_at" json:"lastAttemptAt"`
	LastError              string    `gorm:"column:last_error;type:text" json:"lastError"`
	CallOptionsBlob        string    `gorm:"column:call_options_blob;type:text" json:"callOptionsBlob"`
	AvailableSlotsText     string    `gorm:"column:available_slots_text;type:text" json:"availableSlotsText"`
	InitialSignedURL       string    `gorm:"column:initial_signed_url;type:text" json:"initialSignedUrl"`
	FirstAttemptTimestamp  time.Time `gorm:"column:first_attempt_timestamp;not null" json:"firstAttemptTimestamp"`
}

func (CallQueueEntry) TableName() string { return "call_queue" }

// CallRecord is a placed call, keyed by the telephony provider's call sid
// (spec §3 CallRecord). Rows are never deleted — they are the audit trail.
type CallRecord struct {
	CallSID               string    `gorm:"column:call_sid;primaryKey;type:varchar(64)" json:"callSid"`
	To                    string    `gorm:"column:to_number;type:varchar(32)" json:"to"`
	ContactID             string    `gorm:"column:contact_id;type:varchar(64);index" json:"contactId"`
	RetryCount            int       `gorm:"column:retry_count;not null;default:0" json:"retryCount"`
	Status                string    `gorm:"column:status;type:varchar(32)" json:"status"`
	CreatedAt             time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	SignedURL             string    `gorm:"column:signed_url;type:text" json:"signedUrl"`
	FullName              string    `gorm:"column:full_name;type:varchar(256)" json:"fullName"`
	FirstName             string    `gorm:"column:first_name;type:varchar(128)" json:"firstName"`
	Email                 string    `gorm:"column:email;type:varchar(256)" json:"email"`
	AnsweredBy            string    `gorm:"column:answered_by;type:varchar(32)" json:"answeredBy"`
	AvailableSlots        string    `gorm:"column:available_slots;type:text" json:"availableSlots"`
	ConversationID        string    `gorm:"column:conversation_id;type:varchar(64)" json:"conversationId"`
	FirstAttemptTimestamp time.Time `gorm:"column:first_attempt_timestamp" json:"firstAttemptTimestamp"`
	Service               string    `gorm:"column:service;type:varchar(32)" json:"service"`
	RetryScheduled        bool      `gorm:"column:retry_scheduled;not null;default:false" json:"retryScheduled"`
	Province              string    `gorm:"column:province;type:varchar(2)" json:"province"`
	StreamSID             string    `gorm:"column:stream_sid;type:varchar(64)" json:"streamSid"`
	TranscriptSummary     string    `gorm:"column:transcript_summary;type:text" json:"transcriptSummary"`
	CallOptionsBlob       string    `gorm:"column:call_options_blob;type:text" json:"callOptionsBlob"`
}

func (CallRecord) TableName() string { return "calls" }

// IncomingCall mirrors CallRecord for the inbound-call lifecycle (spec §3).
type IncomingCall struct {
	CallSID        string    `gorm:"column:call_sid;primaryKey;type:varchar(64)" json:"callSid"`
	CallerNumber   string    `gorm:"column:caller_number;type:varchar(32)" json:"callerNumber"`
	Status         string    `gorm:"column:status;type:varchar(32)" json:"status"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	SignedURL      string    `gorm:"column:signed_url;type:text" json:"signedUrl"`
	AvailableSlots string    `gorm:"column:available_slots;type:text" json:"availableSlots"`
	ConversationID string    `gorm:"column:conversation_id;type:varchar(64)" json:"conversationId"`
	StreamSID      string    `gorm:"column:stream_sid;type:varchar(64)" json:"streamSid"`
}

func (IncomingCall) TableName() string { return "incoming_calls" }

// FollowUp is a deferred re-call intent (spec §3).
type FollowUp struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ContactID     string    `gorm:"column:contact_id;type:varchar(64);not null;index" json:"contactId"`
	FollowUpAtUTC time.Time `gorm:"column:follow_up_at_utc;not null;index" json:"followUpAtUtc"`
	Status        string    `gorm:"column:status;type:varchar(16);not null;default:pending" json:"status"`
	Province      string    `gorm:"column:province;type:varchar(2)" json:"province"`
	Service       string    `gorm:"column:service;type:varchar(32)" json:"service"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	HasFailed     bool      `gorm:"column:has_failed;not null;default:false" json:"hasFailed"`
}

func (FollowUp) TableName() string { return "follow_ups" }

// SalesRep is a routing record (spec §3).
type SalesRep struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	GHLUserID  string    `gorm:"column:ghl_user_id;type:varchar(64);uniqueIndex;not null" json:"ghlUserId"`
	Name       string    `gorm:"column:name;type:varchar(256)" json:"name"`
	Services   string    `gorm:"column:services;type:text" json:"services"` // comma-separated set
	Provinces  string    `gorm:"column:provinces;type:text" json:"provinces"` // comma-separated set
	Active     bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (SalesRep) TableName() string { return "sales_reps" }

// CRMToken is per-location OAuth state (spec §3). Treated as a black box by
// the core except for "give me a valid bearer".
type CRMToken struct {
	LocationID   string    `gorm:"column:location_id;primaryKey;type:varchar(64)" json:"locationId"`
	AccessToken  string    `gorm:"column:access_token;type:text;not null" json:"-"`
	RefreshToken string    `gorm:"column:refresh_token;type:text;not null" json:"-"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null" json:"expiresAt"`
}

func (CRMToken) TableName() string { return "crm_tokens" }
