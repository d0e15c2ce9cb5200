// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package voiceai wraps the voice-AI provider (spec §1 "out of scope —
// specified only by the contract the core uses"): signed conversation URLs
// and post-call webhook signature verification.
package voiceai

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ristrutturiamolo/call-orchestrator/internal/config"
)

// AgentDirection selects which configured agent id a signed URL is minted
// for (spec §4.8 step 3: "keyed on service agent").
type AgentDirection int

const (
	Outbound AgentDirection = iota
	Inbound
)

// Client issues signed conversation URLs against the voice-AI provider's
// REST API.
type Client struct {
	http            *resty.Client
	inboundAgentID  string
	outboundAgentID string
	webhookSecret   string
}

// New constructs a Client.
func New(cfg config.VoiceAIConfig) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(10 * time.Second).
			SetHeader("xi-api-key", cfg.APIKey),
		inboundAgentID:  cfg.InboundAgentID,
		outboundAgentID: cfg.OutboundAgentID,
		webhookSecret:   cfg.WebhookSecret,
	}
}

type signedURLResponse struct {
	SignedURL string `json:"signed_url"`
}

// SignedURL mints a fresh conversation URL for the given agent direction
// (spec §4.6 "obtain a voice-AI signed URL for the service's agent";
// §4.12 inbound agent).
func (c *Client) SignedURL(ctx context.Context, dir AgentDirection) (string, error) {
	agentID := c.outboundAgentID
	if dir == Inbound {
		agentID = c.inboundAgentID
	}

	var result signedURLResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("agent_id", agentID).
		SetResult(&result).
		Get("/v1/convai/conversation/get-signed-url")
	if err != nil {
		return "", fmt.Errorf("voiceai: signed url for agent %s: %w", agentID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("voiceai: signed url for agent %s: status %d", agentID, resp.StatusCode())
	}
	return result.SignedURL, nil
}

// WebhookSecretConfigured reports whether signature validation can run at
// all (spec §6: "voice-AI webhook secret (skipping signature validation
// emits a warning)").
func (c *Client) WebhookSecretConfigured() bool {
	return c.webhookSecret != ""
}

// maxSignatureAge is the accepted clock skew window for a post-call webhook
// (spec §4.10 / §7: "now − t > 30 min are rejected").
const maxSignatureAge = 30 * time.Minute

// VerifyWebhookSignature validates the `t=<unix>,v0=<hex>` header against
// HMAC-SHA-256(secret, "<t>.<raw_body>") in constant time (spec §4.10).
func (c *Client) VerifyWebhookSignature(header string, body []byte, now time.Time) error {
	if header == "" {
		return fmt.Errorf("voiceai: missing signature header")
	}

	timestamp, v0, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	t, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("voiceai: invalid signature timestamp: %w", err)
	}
	age := now.Sub(time.Unix(t, 0))
	if age < 0 {
		age = -age
	}
	if age > maxSignatureAge {
		return fmt.Errorf("voiceai: signature timestamp outside %s window", maxSignatureAge)
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(timestamp + "." + string(body)))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(v0)) {
		return fmt.Errorf("voiceai: signature mismatch")
	}
	return nil
}

func parseSignatureHeader(header string) (timestamp, v0 string, err error) {
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v0":
			v0 = kv[1]
		}
	}
	if timestamp == "" || v0 == "" {
		return "", "", fmt.Errorf("voiceai: malformed signature header %q", header)
	}
	return timestamp, v0, nil
}
