// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package telephony wraps the telephony provider (spec §1 "out of scope —
// specified only by the contract the core uses"): outbound call placement,
// active-call accounting, mid-call hangup, and status-callback outcome
// classification.
package telephony

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/ristrutturiamolo/call-orchestrator/internal/config"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
)

// Client wraps a twilio-go REST client with the narrow set of operations
// the call-lifecycle engine needs.
type Client struct {
	rest          *twilio.RestClient
	outboundNums  []string
	logger        telemetry.Logger
}

// New constructs a Client from account credentials and the two configured
// outbound-capable numbers.
func New(cfg config.TelephonyConfig, logger telemetry.Logger) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{
		rest:         rest,
		outboundNums: []string{cfg.OutboundNumber1, cfg.OutboundNumber2},
		logger:       logger,
	}
}

// outboundFrom picks a source number deterministically for a given
// destination, spreading load across the two configured numbers.
func (c *Client) outboundFrom(to string) string {
	if len(c.outboundNums) == 0 {
		return ""
	}
	sum := 0
	for _, ch := range to {
		sum += int(ch)
	}
	return c.outboundNums[sum%len(c.outboundNums)]
}

// CallOptions is the opaque telephony-call parameter blob persisted on the
// queue row and reconstructed on each retry (spec §3 `call_options_blob`).
type CallOptions struct {
	To                  string
	StatusCallbackURL   string
	TwimlURL            string
	MachineDetection    string // "DetectMessageEnd" per spec default
	MachineDetectionSec int
}

// PlaceCall creates an outbound call and returns the provider-assigned call
// sid (spec §4.6 step 4).
func (c *Client) PlaceCall(ctx context.Context, opts CallOptions) (string, error) {
	params := &twilioapi.CreateCallParams{}
	params.SetTo(opts.To)
	params.SetFrom(c.outboundFrom(opts.To))
	params.SetUrl(opts.TwimlURL)
	params.SetStatusCallback(opts.StatusCallbackURL)
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	if opts.MachineDetection != "" {
		params.SetMachineDetection(opts.MachineDetection)
	}
	if opts.MachineDetectionSec > 0 {
		params.SetMachineDetectionTimeout(opts.MachineDetectionSec)
	}

	resp, err := c.rest.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("telephony: create call to %s: %w", opts.To, err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("telephony: create call to %s: no sid returned", opts.To)
	}
	return *resp.Sid, nil
}

// ActiveCallCount asks the provider for the number of calls currently in
// queued, ringing, or in-progress state (spec §4.6 step 1). On error the
// caller must fail closed and treat the cap as saturated.
func (c *Client) ActiveCallCount(ctx context.Context) (int, error) {
	total := 0
	for _, status := range []string{"queued", "ringing", "in-progress"} {
		params := &twilioapi.ListCallParams{}
		params.SetStatus(status)
		params.SetPageSize(100)
		calls, err := c.rest.Api.ListCall(params)
		if err != nil {
			return 0, fmt.Errorf("telephony: list calls status=%s: %w", status, err)
		}
		total += len(calls)
	}
	return total, nil
}

// Hangup terminates a live call (spec §4.7: machine-detected mid-call
// retry must hang up before scheduling the retry).
func (c *Client) Hangup(ctx context.Context, callSID string) error {
	params := &twilioapi.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := c.rest.Api.UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("telephony: hangup %s: %w", callSID, err)
	}
	return nil
}
