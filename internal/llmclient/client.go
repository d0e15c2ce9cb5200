// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package llmclient wraps the Anthropic Messages API for the two LLM uses
// named in spec §1/§4.1/§4.10: province-extraction fallback and missed-
// action analysis on call transcripts.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
)

// MessagesClient captures the subset of the Anthropic SDK used here, so
// tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client is the LLM collaborator used by province extraction and the
// missed-action analyzer.
type Client struct {
	msg    MessagesClient
	model  string
	logger telemetry.Logger
	mock   bool
}

// New constructs a Client from an API key. If apiKey is empty, the client
// runs in "mock analysis" mode, logging one warning here; no separate flag
// selects this mode. In mock mode every call returns a conservative default
// rather than touching the network.
func New(apiKey, model string, logger telemetry.Logger) *Client {
	if apiKey == "" {
		logger.Warnw("llm api key absent, running in mock-analysis mode")
		return &Client{logger: logger, mock: true}
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(sdk.ModelClaudeSonnet4_5)
	}
	return &Client{msg: &ac.Messages, model: model, logger: logger}
}

// ExtractProvince asks the model for the 2-letter Italian province code
// implied by a free-text address (spec §4.1 strategy c: temperature≈0.1,
// max 10 tokens).
func (c *Client) ExtractProvince(ctx context.Context, address string) (string, error) {
	if c.mock {
		return "", errors.New("llm unavailable: mock-analysis mode")
	}

	prompt := fmt.Sprintf(
		"Reply with ONLY the 2-letter Italian province code (e.g. RM, MI) for this address. "+
			"If unknown reply with exactly \"XX\".\nAddress: %s", address)

	resp, err := c.msg.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   10,
		Temperature: sdk.Float(0.1),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm extract province: %w", err)
	}

	text := firstText(resp)
	code := strings.ToUpper(strings.TrimSpace(text))
	if code == "XX" || len(code) != 2 {
		return "", fmt.Errorf("llm returned no usable province code: %q", text)
	}
	return code, nil
}

// MissedActionRequest carries the call transcript and context fed into the
// missed-action analyzer (spec §4.10).
type MissedActionRequest struct {
	Transcript       string
	ToolsAlreadyUsed []string
	ContactContext   map[string]string
}

// MissedActionResult is the strict JSON schema response from spec §4.10.
type MissedActionResult struct {
	NeedsAppointment   bool                    `json:"needsAppointment"`
	AppointmentDetails *AppointmentDetails     `json:"appointmentDetails,omitempty"`
	NeedsFollowUp      bool                    `json:"needsFollowUp"`
	FollowUpDetails    *FollowUpDetails        `json:"followUpDetails,omitempty"`
	NeedsContactUpdate bool                    `json:"needsContactUpdate"`
	ContactUpdate      *ContactUpdateDetails   `json:"contactUpdateDetails,omitempty"`
	OverallAssessment  string                  `json:"overallAssessment"`
}

// AppointmentDetails carries the preferred slot the model inferred was
// promised but never booked during the live call.
type AppointmentDetails struct {
	PreferredDateTime string `json:"preferredDateTime"`
	Notes             string `json:"notes"`
}

// FollowUpDetails carries the model's suggested re-contact delay.
type FollowUpDetails struct {
	SuggestedDelay string `json:"suggestedDelay"` // "24h" | "48h" | "1week"
	Reasoning      string `json:"reasoning"`
}

// ContactUpdateDetails carries enrichment the model inferred from the call.
type ContactUpdateDetails struct {
	NewAddress       string `json:"newAddress"`
	AdditionalNotes  string `json:"additionalNotes"`
	ServiceDetails   string `json:"serviceDetails"`
}

const missedActionSystemPrompt = `You analyze a sales call transcript and respond with ONLY a JSON object
matching this schema: {"needsAppointment":bool,"appointmentDetails":{"preferredDateTime":string,"notes":string},
"needsFollowUp":bool,"followUpDetails":{"suggestedDelay":"24h"|"48h"|"1week","reasoning":string},
"needsContactUpdate":bool,"contactUpdateDetails":{"newAddress":string,"additionalNotes":string,"serviceDetails":string},
"overallAssessment":string}. No prose, no markdown fences.`

// AnalyzeMissedActions runs the missed-action analyzer with up to 3 retries
// and exponential backoff (spec §4.10). In mock mode it returns a
// conservative "nothing missed" result rather than touching the network.
func (c *Client) AnalyzeMissedActions(ctx context.Context, req MissedActionRequest) (*MissedActionResult, error) {
	if c.mock {
		return &MissedActionResult{OverallAssessment: "mock analysis: llm key absent"}, nil
	}

	userPrompt := fmt.Sprintf("Transcript:\n%s\n\nTools already invoked: %s\n\nContact context: %v",
		req.Transcript, strings.Join(req.ToolsAlreadyUsed, ", "), req.ContactContext)

	var lastErr error
	for attempt := 0; attempt <= 3; attempt++ {
		if attempt > 0 {
			backoff := retryBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-backoff:
			}
		}

		resp, err := c.msg.New(ctx, sdk.MessageNewParams{
			Model:     sdk.Model(c.model),
			MaxTokens: 1024,
			System:    []sdk.TextBlockParam{{Text: missedActionSystemPrompt}},
			Messages: []sdk.MessageParam{
				sdk.NewUserMessage(sdk.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			lastErr = err
			continue
		}

		var result MissedActionResult
		text := firstText(resp)
		if err := json.Unmarshal([]byte(text), &result); err != nil {
			lastErr = fmt.Errorf("parse missed-action json: %w", err)
			continue
		}
		return &result, nil
	}
	return nil, fmt.Errorf("missed-action analysis failed after retries: %w", lastErr)
}

func firstText(resp *sdk.Message) string {
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}
