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

// Package discovery serves the OpenID Connect discovery document. The
// document is derived from the server configuration so the advertised
// endpoints cannot drift from the issuer.
package discovery

import (
	"encoding/json"
	"net/http"

	"github.com/bastionlabs/bastion/internal/oauth2/pkce"
	"github.com/bastionlabs/bastion/internal/system/log"
)

// Metadata represents the OpenID Connect discovery document.
type Metadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
}

// Handler serves the discovery document.
type Handler struct {
	metadata *Metadata
}

// NewHandler builds the discovery document for the given issuer and supported
// scope set. The document is immutable after construction.
func NewHandler(issuer string, scopesSupported []string) *Handler {
	return &Handler{
		metadata: &Metadata{
			Issuer:                issuer,
			AuthorizationEndpoint: issuer + "/oauth2/authorize",
			TokenEndpoint:         issuer + "/oauth2/token",
			JWKSURI:               issuer + "/oauth2/jwks",
			IntrospectionEndpoint: issuer + "/oauth2/introspect",
			ResponseTypesSupported: []string{
				"code",
			},
			GrantTypesSupported: []string{
				"authorization_code",
				"client_credentials",
				"password",
				"refresh_token",
			},
			ScopesSupported:                  scopesSupported,
			SubjectTypesSupported:            []string{"public"},
			IDTokenSigningAlgValuesSupported: []string{"RS256"},
			CodeChallengeMethodsSupported: []string{
				pkce.CodeChallengeMethodS256,
				pkce.CodeChallengeMethodPlain,
			},
			TokenEndpointAuthMethodsSupported: []string{
				"client_secret_basic",
				"client_secret_post",
			},
			ClaimsSupported: []string{
				"sub", "name", "given_name", "family_name", "email",
				"email_verified", "website", "role",
			},
		},
	}
}

// HandleDiscoveryRequest handles the HTTP request for the discovery document.
func (h *Handler) HandleDiscoveryRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "DiscoveryHandler"))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.metadata); err != nil {
		logger.Error("Error encoding discovery response", log.Error(err))
	}
}
