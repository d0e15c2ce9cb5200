// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package voiceai

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(body)))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignatureAccepted(t *testing.T) {
	c := &Client{webhookSecret: "s3cr3t"}
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"event":"post_call_transcription"}`)
	ts := fmt.Sprintf("%d", now.Unix())
	header := fmt.Sprintf("t=%s,v0=%s", ts, sign("s3cr3t", ts, body))

	require.NoError(t, c.VerifyWebhookSignature(header, body, now))
}

func TestVerifyWebhookSignatureRejectsStale(t *testing.T) {
	c := &Client{webhookSecret: "s3cr3t"}
	issued := time.Unix(1_700_000_000, 0)
	now := issued.Add(31 * time.Minute)
	body := []byte(`{}`)
	ts := fmt.Sprintf("%d", issued.Unix())
	header := fmt.Sprintf("t=%s,v0=%s", ts, sign("s3cr3t", ts, body))

	err := c.VerifyWebhookSignature(header, body, now)
	require.Error(t, err)
}

func TestVerifyWebhookSignatureRejectsBadHash(t *testing.T) {
	c := &Client{webhookSecret: "s3cr3t"}
	now := time.Unix(1_700_000_000, 0)
	header := fmt.Sprintf("t=%d,v0=deadbeef", now.Unix())

	err := c.VerifyWebhookSignature(header, []byte(`{}`), now)
	require.Error(t, err)
}

func TestVerifyWebhookSignatureRejectsMissingHeader(t *testing.T) {
	c := &Client{webhookSecret: "s3cr3t"}
	require.Error(t, c.VerifyWebhookSignature("", []byte(`{}`), time.Now()))
}
