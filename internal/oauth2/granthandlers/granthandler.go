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

// Package granthandlers implements the per-grant-type logic behind the token
// endpoint.
package granthandlers

import (
	"time"

	"github.com/google/uuid"

	clientmodel "github.com/bastionlabs/bastion/internal/client/model"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/oauth2/refreshtoken"
	"github.com/bastionlabs/bastion/internal/oauth2/scope"
	"github.com/bastionlabs/bastion/internal/system/config"
)

const defaultRefreshTokenValidity = 86400 * 30

// GrantHandlerInterface defines the interface for OAuth2 grant handlers.
type GrantHandlerInterface interface {
	ValidateGrant(tokenRequest *model.TokenRequest, oauthClient *clientmodel.Client) *model.ErrorResponse
	HandleGrant(tokenRequest *model.TokenRequest, oauthClient *clientmodel.Client) (
		*model.TokenResponseDTO, *model.ErrorResponse)
}

// GrantHandlerProviderInterface resolves the handler for a grant type.
type GrantHandlerProviderInterface interface {
	GetGrantHandler(grantType constants.GrantType) (GrantHandlerInterface, *model.ErrorResponse)
}

// GrantHandlerProvider dispatches token requests to the registered grant
// handlers.
type GrantHandlerProvider struct {
	handlers map[constants.GrantType]GrantHandlerInterface
}

// NewGrantHandlerProvider creates a provider over the given grant handlers.
func NewGrantHandlerProvider(authorizationCode, clientCredentials, password,
	refreshToken GrantHandlerInterface) *GrantHandlerProvider {
	return &GrantHandlerProvider{
		handlers: map[constants.GrantType]GrantHandlerInterface{
			constants.GrantTypeAuthorizationCode: authorizationCode,
			constants.GrantTypeClientCredentials: clientCredentials,
			constants.GrantTypePassword:          password,
			constants.GrantTypeRefreshToken:      refreshToken,
		},
	}
}

// GetGrantHandler returns the handler registered for the given grant type.
func (p *GrantHandlerProvider) GetGrantHandler(grantType constants.GrantType) (
	GrantHandlerInterface, *model.ErrorResponse) {
	handler, ok := p.handlers[grantType]
	if !ok || handler == nil {
		return nil, model.NewErrorResponse(constants.ErrorUnsupportedGrantType,
			"Unsupported grant type")
	}
	return handler, nil
}

// refreshTokenValidity resolves the refresh token lifetime in seconds for the
// client, falling back to the server default.
func refreshTokenValidity(oauthClient *clientmodel.Client, tokenConfig config.TokenConfig) int64 {
	if oauthClient.RefreshTokenValidityPeriod > 0 {
		return oauthClient.RefreshTokenValidityPeriod
	}
	if tokenConfig.RefreshTokenValidityPeriod > 0 {
		return tokenConfig.RefreshTokenValidityPeriod
	}
	return defaultRefreshTokenValidity
}

// shouldIssueRefreshToken reports whether a refresh token accompanies the
// access token for the given granted scopes.
func shouldIssueRefreshToken(oauthClient *clientmodel.Client, scopes []string) bool {
	return oauthClient.AllowOfflineAccess && scope.HasScope(scopes, constants.ScopeOfflineAccess)
}

// newRefreshTokenFamily mints the first refresh token of a new rotation
// family. The family deadline anchors the absolute expiration policy across
// later rotations.
func newRefreshTokenFamily(oauthClient *clientmodel.Client, tokenConfig config.TokenConfig,
	subjectID, codeID string, scopes []string, nonce string, authTime time.Time,
	amr []string) *refreshtoken.RefreshToken {
	now := time.Now()
	deadline := now.Add(time.Duration(refreshTokenValidity(oauthClient, tokenConfig)) * time.Second)
	return &refreshtoken.RefreshToken{
		Token:          refreshtoken.NewTokenValue(),
		ClientID:       oauthClient.ClientID,
		SubjectID:      subjectID,
		Scopes:         scopes,
		FamilyID:       uuid.NewString(),
		CodeID:         codeID,
		IssuedAt:       now,
		ExpiresAt:      deadline,
		FamilyDeadline: deadline,
		Nonce:          nonce,
		AuthTime:       authTime,
		AMR:            amr,
	}
}
