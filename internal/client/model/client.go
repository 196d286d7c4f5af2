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

// Package model defines the data structures for registered OAuth clients.
package model

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/bastionlabs/bastion/internal/system/crypto/hash"
)

// Refresh token usage policies.
const (
	RefreshTokenUsageOneTime  = "one-time"
	RefreshTokenUsageReusable = "reusable"
)

// Refresh token expiration policies.
const (
	RefreshTokenExpirationSliding  = "sliding"
	RefreshTokenExpirationAbsolute = "absolute"
)

// Client represents a registered OAuth client and its policy configuration.
type Client struct {
	ClientID               string
	Name                   string
	SecretHash             string // empty for public clients
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	AllowedGrantTypes      []string
	AllowedScopes          []string
	RequirePKCE            bool
	AllowPlainTextPKCE     bool
	SkipConsent            bool
	AllowOfflineAccess     bool
	RefreshTokenUsage      string
	RefreshTokenExpiration string
	// Validity periods are in seconds. Zero means the server default applies.
	AccessTokenValidityPeriod  int64
	IDTokenValidityPeriod      int64
	RefreshTokenValidityPeriod int64
	AllowedCORSOrigins         []string
}

// IsPublic reports whether the client has no registered secret.
func (c *Client) IsPublic() bool {
	return c.SecretHash == ""
}

// IsAllowedGrantType checks if the provided grant type is allowed for the client.
func (c *Client) IsAllowedGrantType(grantType string) bool {
	return slices.Contains(c.AllowedGrantTypes, grantType)
}

// IsAllowedScope checks if the provided scope is allowed for the client.
// The offline access scope is permitted exactly when offline access is enabled.
func (c *Client) IsAllowedScope(scope string) bool {
	if scope == "offline_access" {
		return c.AllowOfflineAccess
	}
	return slices.Contains(c.AllowedScopes, scope)
}

// ValidateRedirectURI validates the provided redirect URI against the registered
// redirect URIs. Matching is exact; no prefix or wildcard forms are accepted.
func (c *Client) ValidateRedirectURI(redirectURI string) error {
	if redirectURI == "" {
		return fmt.Errorf("redirect URI is required in the authorization request")
	}

	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return fmt.Errorf("invalid redirect URI: %s", err.Error())
	}
	if parsed.Fragment != "" {
		return fmt.Errorf("redirect URI must not contain a fragment component")
	}

	if !slices.Contains(c.RedirectURIs, redirectURI) {
		return fmt.Errorf("redirect URI does not match the registered redirect URIs")
	}

	return nil
}

// ValidateSecret compares the presented secret against the registered secret hash.
// The comparison cost is the same whether or not the client has a secret.
func (c *Client) ValidateSecret(secret string) bool {
	if c.SecretHash == "" {
		return hash.VerifyDummy(secret)
	}
	return hash.VerifyCredential(c.SecretHash, secret)
}
