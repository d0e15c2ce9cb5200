// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package crmclient

import (
	"github.com/golang-jwt/jwt/v5"
)

// crmAccessTokenClaims models the subset of claims the CRM's own OAuth
// access tokens carry (they are themselves JWTs, per the provider's
// marketplace app convention): the token's issuing location, so a refresh
// that comes back scoped to the wrong location is logged as a warning; the
// token is still persisted and used.
type crmAccessTokenClaims struct {
	jwt.RegisteredClaims
	LocationID string `json:"location_id"`
}

// accessTokenLocation extracts the location_id claim from a CRM access
// token without verifying its signature — the CRM's signing key is not
// ours to hold, so this is a sanity check against ValidBearer's caller-
// supplied locationID, not an authentication decision (the bearer is only
// ever sent back to the same CRM that issued it).
func accessTokenLocation(rawToken string) (string, bool) {
	var claims crmAccessTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, &claims); err != nil {
		return "", false
	}
	return claims.LocationID, claims.LocationID != ""
}
