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
	"time"

	clientmodel "github.com/bastionlabs/bastion/internal/client/model"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/oauth2/refreshtoken"
	"github.com/bastionlabs/bastion/internal/oauth2/scope"
	"github.com/bastionlabs/bastion/internal/system/config"
	"github.com/bastionlabs/bastion/internal/system/log"
	"github.com/bastionlabs/bastion/internal/token"
	"github.com/bastionlabs/bastion/internal/user"
)

const passwordGrantLoggerComponentName = "PasswordGrantHandler"

// PasswordGrantHandler handles the resource owner password grant. The grant
// bypasses user-agent redirection and is only reachable for clients that opt
// in through the registry, never for browser-based public clients.
type PasswordGrantHandler struct {
	userService    user.ServiceInterface
	refreshStore   refreshtoken.StoreInterface
	issuer         token.IssuerInterface
	scopeValidator scope.ValidatorInterface
	tokenConfig    config.TokenConfig
}

// NewPasswordGrantHandler creates a new resource owner password grant handler.
func NewPasswordGrantHandler(userService user.ServiceInterface,
	refreshStore refreshtoken.StoreInterface, issuer token.IssuerInterface,
	tokenConfig config.TokenConfig) *PasswordGrantHandler {
	return &PasswordGrantHandler{
		userService:    userService,
		refreshStore:   refreshStore,
		issuer:         issuer,
		scopeValidator: scope.NewValidator(),
		tokenConfig:    tokenConfig,
	}
}

// ValidateGrant validates the password grant token request.
func (h *PasswordGrantHandler) ValidateGrant(tokenRequest *model.TokenRequest,
	oauthClient *clientmodel.Client) *model.ErrorResponse {
	if tokenRequest.GrantType != string(constants.GrantTypePassword) {
		return model.NewErrorResponse(constants.ErrorUnsupportedGrantType, "Unsupported grant type")
	}
	if oauthClient.IsPublic() {
		return model.NewErrorResponse(constants.ErrorUnauthorizedClient,
			"Public clients cannot use the password grant")
	}
	if tokenRequest.Username == "" || tokenRequest.Password == "" {
		return model.NewErrorResponse(constants.ErrorInvalidRequest,
			"Missing username or password parameter")
	}
	return nil
}

// HandleGrant authenticates the resource owner and issues tokens.
func (h *PasswordGrantHandler) HandleGrant(tokenRequest *model.TokenRequest,
	oauthClient *clientmodel.Client) (*model.TokenResponseDTO, *model.ErrorResponse) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, passwordGrantLoggerComponentName))

	subject, svcErr := h.userService.Authenticate(tokenRequest.Username, tokenRequest.Password)
	if svcErr != nil {
		return nil, model.NewErrorResponse(constants.ErrorInvalidGrant, "Invalid username or password")
	}

	grantedScopes, scopeErr := h.scopeValidator.FilterScopes(oauthClient, tokenRequest.Scope)
	if scopeErr != nil {
		return nil, scopeErr
	}

	accessToken, err := h.issuer.IssueAccessToken(subject.ID, oauthClient, grantedScopes)
	if err != nil {
		logger.Error("Failed to issue access token", log.Error(err))
		return nil, model.NewErrorResponse(constants.ErrorServerError, "Failed to generate token")
	}
	response := &model.TokenResponseDTO{AccessToken: *accessToken}

	authTime := time.Now()
	amr := []string{constants.AMRPassword}

	if scope.HasScope(grantedScopes, constants.ScopeOpenID) {
		idToken, err := h.issuer.IssueIDToken(subject, oauthClient, grantedScopes, "", authTime, amr)
		if err != nil {
			logger.Error("Failed to issue ID token", log.Error(err))
			return nil, model.NewErrorResponse(constants.ErrorServerError, "Failed to generate token")
		}
		response.IDToken = idToken
	}

	if shouldIssueRefreshToken(oauthClient, grantedScopes) {
		refreshToken := newRefreshTokenFamily(oauthClient, h.tokenConfig, subject.ID, "",
			grantedScopes, "", authTime, amr)
		if err := h.refreshStore.Insert(refreshToken); err != nil {
			logger.Error("Failed to persist refresh token", log.Error(err))
			return nil, model.NewErrorResponse(constants.ErrorServerError, "Failed to generate token")
		}
		response.RefreshToken = refreshToken.Token
	}

	return response, nil
}
