/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package refreshtoken manages the server side refresh token records and
// their rotation families.
package refreshtoken

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// Refresh token store errors.
var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenConsumed = errors.New("refresh token already consumed")
	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenExpired  = errors.New("refresh token expired")
)

// RefreshToken is an opaque, server side token record. Tokens issued by
// rotating an earlier token share its FamilyID; CodeID records the
// authorization code the family originated from so a code replay can revoke
// every descendant token.
type RefreshToken struct {
	Token          string
	ClientID       string
	SubjectID      string
	Scopes         []string
	FamilyID       string
	CodeID         string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	FamilyDeadline time.Time
	Consumed       bool
	Revoked        bool

	// OIDC context carried across rotations so refreshed ID tokens keep the
	// original authentication details.
	Nonce    string
	AuthTime time.Time
	AMR      []string
}

// IsExpired reports whether the token has expired at the given instant.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// NewTokenValue generates a new opaque refresh token value.
func NewTokenValue() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
