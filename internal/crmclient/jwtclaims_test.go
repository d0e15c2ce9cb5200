// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package crmclient

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedTestToken(t *testing.T, locationID string) string {
	t.Helper()
	claims := crmAccessTokenClaims{LocationID: locationID}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func TestAccessTokenLocationExtractsClaim(t *testing.T) {
	token := signedTestToken(t, "loc1")

	location, ok := accessTokenLocation(token)

	require.True(t, ok)
	require.Equal(t, "loc1", location)
}

func TestAccessTokenLocationMissingClaim(t *testing.T) {
	token := signedTestToken(t, "")

	_, ok := accessTokenLocation(token)

	require.False(t, ok)
}

func TestAccessTokenLocationMalformedToken(t *testing.T) {
	_, ok := accessTokenLocation("not-a-jwt")
	require.False(t, ok)
}
