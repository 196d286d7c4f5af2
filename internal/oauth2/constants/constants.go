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

// Package constants defines constants for OAuth 2.0 and OIDC protocol handling.
package constants

// GrantType represents an OAuth 2.0 grant type.
type GrantType string

// Supported grant types. The set is closed; dispatch never extends beyond it.
const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeClientCredentials GrantType = "client_credentials"
	GrantTypePassword          GrantType = "password"
	GrantTypeRefreshToken      GrantType = "refresh_token"
)

// Response types.
const (
	ResponseTypeCode = "code"
)

// Token types.
const (
	TokenTypeBearer = "Bearer"
)

// Standard scopes with protocol level meaning.
const (
	ScopeOpenID        = "openid"
	ScopeOfflineAccess = "offline_access"
)

// Authentication method reference values.
const (
	AMRPassword  = "pwd"
	AMRFederated = "federated"
)

// Request parameters.
const (
	RequestParamGrantType           = "grant_type"
	RequestParamClientID            = "client_id"
	RequestParamClientSecret        = "client_secret"
	RequestParamCode                = "code"
	RequestParamRedirectURI         = "redirect_uri"
	RequestParamCodeVerifier        = "code_verifier"
	RequestParamCodeChallenge       = "code_challenge"
	RequestParamCodeChallengeMethod = "code_challenge_method"
	RequestParamRefreshToken        = "refresh_token"
	RequestParamUsername            = "username"
	RequestParamPassword            = "password"
	RequestParamScope               = "scope"
	RequestParamState               = "state"
	RequestParamNonce               = "nonce"
	RequestParamResponseType        = "response_type"
	RequestParamSessionKey          = "session_key"
	RequestParamProvider            = "provider"
	RequestParamError               = "error"
	RequestParamErrorDescription    = "error_description"
	RequestParamToken               = "token"
	RequestParamTokenTypeHint       = "token_type_hint"
)

// OAuth 2.0 error codes as defined in RFC 6749.
const (
	ErrorInvalidRequest          = "invalid_request"
	ErrorInvalidClient           = "invalid_client"
	ErrorInvalidGrant            = "invalid_grant"
	ErrorUnauthorizedClient      = "unauthorized_client"
	ErrorUnsupportedGrantType    = "unsupported_grant_type"
	ErrorUnsupportedResponseType = "unsupported_response_type"
	ErrorInvalidScope            = "invalid_scope"
	ErrorAccessDenied            = "access_denied"
	ErrorServerError             = "server_error"
)
