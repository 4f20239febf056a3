/*
Copyright 2026 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime assumed for tokens that carry no readable expiry.
const DefaultTTL = 15 * time.Minute

// Credential is a short-lived bearer token together with its bookkeeping.
type Credential struct {
	// Token is the opaque bearer string attached to protected requests.
	Token string
	// UserID identifies the user the token was issued to.
	UserID string
	// IssuedAt is when the client observed the token.
	IssuedAt time.Time
	// ExpiresAt is the token's `exp` claim when the token is a JWT,
	// IssuedAt+DefaultTTL otherwise.
	ExpiresAt time.Time
}

// NewCredential builds a Credential observed at now.
func NewCredential(token, userID string, now time.Time) Credential {
	return Credential{
		Token:     token,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: expiryFromToken(token, now),
	}
}

// Expired reports whether the credential is past its expiry at now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// IsZero reports whether the credential holds no token.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// expiryFromToken reads the exp claim without verifying the signature: the
// server is the only party that validates tokens, the client just keeps books.
func expiryFromToken(token string, now time.Time) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return now.Add(DefaultTTL)
}
