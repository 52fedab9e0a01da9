// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Token is the session credential. It lives only in the Manager's
// memory and dies with the process.
type Token struct {
	AccessToken string
	TokenType   string

	// ExpiresAt is zero when the provider gave no deadline and the
	// token carries no readable exp claim.
	ExpiresAt time.Time
}

// Header renders the Authorization header value.
func (t *Token) Header() string {
	typ := t.TokenType
	if typ == "" {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

// tokenDeadline picks the expiry for a freshly exchanged token: the
// provider's explicit expires_in when present, else the exp claim when
// the access token parses as a JWT, else zero.
func tokenDeadline(tok *oauth2.Token) time.Time {
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	return jwtExpiry(tok.AccessToken)
}

// jwtExpiry peeks at the exp claim without verifying the signature.
// The deadline only schedules a local state change; the upstream
// remains the authority on whether the token is still good.
func jwtExpiry(raw string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
