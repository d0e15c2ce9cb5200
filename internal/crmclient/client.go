// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package crmclient is the CRM collaborator (spec §1 "out of scope —
// specified only by the contract the core uses"): contact lookup, calendar
// free-slot query, appointment booking, workflow-tag writes, note
// attachment, and OAuth token refresh.
package crmclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/ristrutturiamolo/call-orchestrator/internal/config"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
)

// TokenStore is the persistence dependency for per-location OAuth state.
type TokenStore interface {
	GetCRMToken(locationID string) (*store.CRMToken, error)
	UpsertCRMToken(tok *store.CRMToken) error
}

// Client talks to the CRM's REST API over resty, refreshing OAuth tokens on
// demand via golang.org/x/oauth2.
type Client struct {
	http      *resty.Client
	oauthCfg  oauth2.Config
	tokens    TokenStore
	cfg       config.CRMConfig
	logger    telemetry.Logger
}

// New constructs a CRM Client.
func New(cfg config.CRMConfig, tokens TokenStore, logger telemetry.Logger) *Client {
	return &Client{
		http: resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(15 * time.Second),
		oauthCfg: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.BaseURL + "/oauth/authorize",
				TokenURL: cfg.BaseURL + "/oauth/token",
			},
		},
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
	}
}

// ErrTokenMissing is returned when no CRM token exists for a location and
// none can be minted (spec §4.5 validation step 4: "CRM token for the
// location must be obtainable — else 500 and stop").
var ErrTokenMissing = fmt.Errorf("crm: token missing for location")

// ValidBearer returns a usable bearer token for locationID, refreshing it
// via the CRM's OAuth endpoint if it is expired. The core treats the CRM's
// OAuth state as a black box beyond this operation (spec §1).
func (c *Client) ValidBearer(ctx context.Context, locationID string) (string, error) {
	tok, err := c.tokens.GetCRMToken(locationID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenMissing, err)
	}

	if time.Now().Before(tok.ExpiresAt.Add(-1 * time.Minute)) {
		return tok.AccessToken, nil
	}

	src := c.oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	refreshed, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("crm: refresh token for %s: %w", locationID, err)
	}

	tok.AccessToken = refreshed.AccessToken
	if refreshed.RefreshToken != "" {
		tok.RefreshToken = refreshed.RefreshToken
	}
	tok.ExpiresAt = refreshed.Expiry

	if claimLocation, ok := accessTokenLocation(tok.AccessToken); ok && claimLocation != locationID {
		c.logger.Warnw("crm: refreshed token's location_id claim does not match request",
			"expected_location", locationID, "token_location", claimLocation)
	}

	if err := c.tokens.UpsertCRMToken(tok); err != nil {
		c.logger.Warnw("crm: failed to persist refreshed token", "location", locationID, "error", err.Error())
	}
	return tok.AccessToken, nil
}

func (c *Client) authorizedRequest(ctx context.Context, locationID string) (*resty.Request, error) {
	bearer, err := c.ValidBearer(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return c.http.R().SetContext(ctx).SetAuthToken(bearer), nil
}
