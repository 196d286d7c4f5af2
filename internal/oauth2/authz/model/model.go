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

// Package model defines the data structures for OAuth2 authorization.
package model

import (
	"time"
)

// Authorization code states.
const (
	AuthCodeStateActive   = "active"
	AuthCodeStateInactive = "inactive"
	AuthCodeStateExpired  = "expired"
	AuthCodeStateRevoked  = "revoked"
)

// AuthorizationCode represents an issued authorization code. CodeID is a
// stable identifier that outlives the code value so tokens minted from the
// code can be revoked if the code is ever replayed.
type AuthorizationCode struct {
	CodeID              string
	Code                string
	ClientID            string
	SubjectID           string
	RedirectURI         string
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
	AuthTime            time.Time
	AMR                 []string
	TimeCreated         time.Time
	ExpiryTime          time.Time
	State               string
}

// IsExpired reports whether the code has expired at the given instant.
func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiryTime)
}

// SessionStatus represents the state of an interactive authorization session.
type SessionStatus string

// Authorization session statuses. A session advances strictly forward;
// completed, denied, and expired are terminal.
const (
	SessionStatusStarted                SessionStatus = "started"
	SessionStatusAwaitingAuthentication SessionStatus = "awaiting_authentication"
	SessionStatusAwaitingConsent        SessionStatus = "awaiting_consent"
	SessionStatusCompleted              SessionStatus = "completed"
	SessionStatusDenied                 SessionStatus = "denied"
	SessionStatusExpired                SessionStatus = "expired"
)

// AuthzSession holds the state of one browser authorization flow between the
// initial request and code issuance. It is keyed by SessionKey and mutated
// only by the flow that owns it.
type AuthzSession struct {
	SessionKey          string
	ClientID            string
	RedirectURI         string
	Scopes              []string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string

	Status SessionStatus

	// Populated once the user has authenticated.
	SubjectID string
	AuthTime  time.Time
	AMR       []string

	// IssuedCode makes code issuance idempotent: a double submit of the
	// consent form returns the first code instead of minting a second one.
	IssuedCode        string
	IssuedRedirectURI string

	TimeCreated time.Time
}

// AuthenticateRequest represents the credentials posted to continue an
// authorization session.
type AuthenticateRequest struct {
	SessionKey string `json:"session_key"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// ConsentRequest represents the user's consent decision for a session.
type ConsentRequest struct {
	SessionKey string `json:"session_key"`
	Decision   string `json:"decision"`
}

// AuthzResponse tells the user agent where to go next in the flow.
type AuthzResponse struct {
	RedirectURI string `json:"redirect_uri"`
	SessionKey  string `json:"session_key,omitempty"`
}

// Consent decisions.
const (
	ConsentDecisionAllow = "allow"
	ConsentDecisionDeny  = "deny"
)
