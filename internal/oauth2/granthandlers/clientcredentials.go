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

package granthandlers

import (
	clientmodel "github.com/bastionlabs/bastion/internal/client/model"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/oauth2/scope"
	"github.com/bastionlabs/bastion/internal/token"
)

// ClientCredentialsGrantHandler handles the client credentials grant. Tokens
// issued here represent the client itself, so there is no subject, no ID
// token, and never a refresh token.
type ClientCredentialsGrantHandler struct {
	issuer         token.IssuerInterface
	scopeValidator scope.ValidatorInterface
}

// NewClientCredentialsGrantHandler creates a new client credentials grant handler.
func NewClientCredentialsGrantHandler(issuer token.IssuerInterface) *ClientCredentialsGrantHandler {
	return &ClientCredentialsGrantHandler{
		issuer:         issuer,
		scopeValidator: scope.NewValidator(),
	}
}

// ValidateGrant validates the client credentials token request.
func (h *ClientCredentialsGrantHandler) ValidateGrant(tokenRequest *model.TokenRequest,
	oauthClient *clientmodel.Client) *model.ErrorResponse {
	if tokenRequest.GrantType != string(constants.GrantTypeClientCredentials) {
		return model.NewErrorResponse(constants.ErrorUnsupportedGrantType, "Unsupported grant type")
	}
	if oauthClient.IsPublic() {
		return model.NewErrorResponse(constants.ErrorUnauthorizedClient,
			"Public clients cannot use the client_credentials grant")
	}
	return nil
}

// HandleGrant issues an access token for the client itself.
func (h *ClientCredentialsGrantHandler) HandleGrant(tokenRequest *model.TokenRequest,
	oauthClient *clientmodel.Client) (*model.TokenResponseDTO, *model.ErrorResponse) {
	grantedScopes, scopeErr := h.scopeValidator.FilterScopes(oauthClient, tokenRequest.Scope)
	if scopeErr != nil {
		return nil, scopeErr
	}

	// offline_access is meaningless without a subject.
	scopes := make([]string, 0, len(grantedScopes))
	for _, s := range grantedScopes {
		if s == constants.ScopeOfflineAccess {
			continue
		}
		scopes = append(scopes, s)
	}

	accessToken, err := h.issuer.IssueAccessToken("", oauthClient, scopes)
	if err != nil {
		return nil, model.NewErrorResponse(constants.ErrorServerError, "Failed to generate token")
	}

	return &model.TokenResponseDTO{AccessToken: *accessToken}, nil
}
