// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package notifier sends structured operator notifications to a chat
// webhook (spec §4.13/§7). Every notification carries at minimum a
// timestamp, request id, and the contact/service/province context
// available at the call site.
package notifier

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
)

// Severity classifies the urgency of a notification, matching spec §7's
// "warning" / "normal" / "fatal" vocabulary.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityNormal  Severity = "normal"
	SeverityFatal   Severity = "fatal"
)

const (
	fatalTimeout    = 5 * time.Second
	nonFatalTimeout = 8 * time.Second
)

// Notification is the structured payload sent to the chat channel.
type Notification struct {
	Severity  Severity
	RequestID string
	ContactID string
	Phone     string
	Service   string
	Province  string
	Message   string
	Err       error
}

// Notifier posts Block Kit-shaped JSON payloads to the configured chat
// webhook, mirroring the teacher's habit of isolating every external
// collaborator behind a small resty-backed client.
type Notifier struct {
	client     *resty.Client
	webhookURL string
	logger     telemetry.Logger
}

// New builds a Notifier against a chat webhook URL.
func New(webhookURL string, logger telemetry.Logger) *Notifier {
	return &Notifier{
		client:     resty.New(),
		webhookURL: webhookURL,
		logger:     logger,
	}
}

// Send posts a notification, applying the fatal/non-fatal timeout split
// from spec §5 (5s fatal path, 8s non-fatal). Send never returns an error
// to the caller's critical path — failures are logged, matching the
// teacher's "notifications are best-effort" posture for external side
// channels.
func (n *Notifier) Send(ctx context.Context, note Notification) {
	timeout := nonFatalTimeout
	icon := "ℹ️"
	switch note.Severity {
	case SeverityFatal:
		timeout = fatalTimeout
		icon = "🚨 fatal"
	case SeverityWarning:
		icon = "⚠️"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload := blockKitPayload(icon, note)

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.webhookURL)

	if err != nil {
		n.logger.Warnw("notifier: send failed", "error", err.Error(), "severity", note.Severity)
		return
	}
	if resp.IsError() {
		n.logger.Warnw("notifier: webhook rejected notification", "status", resp.StatusCode())
	}
}

func blockKitPayload(icon string, note Notification) map[string]interface{} {
	var errText string
	if note.Err != nil {
		errText = note.Err.Error()
	}
	return map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": icon + " " + note.Message,
				},
			},
			{
				"type": "context",
				"elements": []map[string]string{
					{"type": "mrkdwn", "text": "requestId: " + note.RequestID},
					{"type": "mrkdwn", "text": "contactId: " + note.ContactID},
					{"type": "mrkdwn", "text": "phone: " + note.Phone},
					{"type": "mrkdwn", "text": "service: " + note.Service},
					{"type": "mrkdwn", "text": "province: " + note.Province},
					{"type": "mrkdwn", "text": "error: " + errText},
					{"type": "mrkdwn", "text": "timestamp: " + time.Now().UTC().Format(time.RFC3339)},
				},
			},
		},
	}
}
