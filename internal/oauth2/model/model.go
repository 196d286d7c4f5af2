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

// Package model defines the request and response models used in OAuth 2.0 flows.
package model

import (
	"time"

	"github.com/bastionlabs/bastion/internal/oauth2/constants"
)

// TokenRequest represents a parsed request to the token endpoint.
type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// TokenDTO holds an issued token together with its metadata.
type TokenDTO struct {
	Token     string
	TokenType string
	IssuedAt  int64
	ExpiresIn int64
	Scopes    []string
	ClientID  string
}

// TokenResponseDTO is the internal representation of a successful token
// endpoint response before it is serialized to the wire format.
type TokenResponseDTO struct {
	AccessToken  TokenDTO
	RefreshToken string
	IDToken      string
}

// TokenResponse is the wire format of a successful token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope"`
}

// ErrorResponse represents an OAuth 2.0 error response as defined in RFC 6749.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// AuthorizeRequest represents a parsed request to the authorization endpoint.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// IntrospectRequest represents a request to the token introspection endpoint.
type IntrospectRequest struct {
	Token         string
	TokenTypeHint string
}

// IntrospectResponse is the wire format of an introspection response as
// defined in RFC 7662. Inactive tokens serialize only the active flag.
type IntrospectResponse struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Nbf       int64  `json:"nbf,omitempty"`
	Aud       string `json:"aud,omitempty"`
	Iss       string `json:"iss,omitempty"`
	Jti       string `json:"jti,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

// IsExpired reports whether the token carried by the DTO has expired at the
// given instant.
func (t *TokenDTO) IsExpired(now time.Time) bool {
	return now.Unix() >= t.IssuedAt+t.ExpiresIn
}

// NewErrorResponse constructs an ErrorResponse with the given code and
// description.
func NewErrorResponse(code, description string) *ErrorResponse {
	return &ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	}
}

// SupportedGrantTypes returns the grant types the server can dispatch.
func SupportedGrantTypes() []constants.GrantType {
	return []constants.GrantType{
		constants.GrantTypeAuthorizationCode,
		constants.GrantTypeClientCredentials,
		constants.GrantTypePassword,
		constants.GrantTypeRefreshToken,
	}
}
