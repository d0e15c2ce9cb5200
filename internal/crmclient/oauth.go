// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package crmclient

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
)

// AuthCodeURL returns the CRM's OAuth authorization-code URL, carrying
// state as the anti-CSRF/location-correlation token (spec §4.13: the
// `/gohighlevel/auth` route kicks off the first-time authorization dance
// that populates the crm_tokens row ValidBearer later reads).
func (c *Client) AuthCodeURL(state string) string {
	return c.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode trades an authorization code for the first access/refresh
// token pair and persists it for locationID.
func (c *Client) ExchangeCode(ctx context.Context, code, locationID string) error {
	tok, err := c.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("crm: exchange authorization code: %w", err)
	}

	return c.tokens.UpsertCRMToken(&store.CRMToken{
		LocationID:   locationID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	})
}
