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
	"errors"

	clientmodel "github.com/bastionlabs/bastion/internal/client/model"
	authzstore "github.com/bastionlabs/bastion/internal/oauth2/authz/store"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/oauth2/pkce"
	"github.com/bastionlabs/bastion/internal/oauth2/refreshtoken"
	"github.com/bastionlabs/bastion/internal/oauth2/scope"
	"github.com/bastionlabs/bastion/internal/system/config"
	"github.com/bastionlabs/bastion/internal/system/log"
	"github.com/bastionlabs/bastion/internal/token"
	"github.com/bastionlabs/bastion/internal/user"
)

const authzGrantLoggerComponentName = "AuthorizationCodeGrantHandler"

// AuthorizationCodeGrantHandler redeems authorization codes for tokens.
type AuthorizationCodeGrantHandler struct {
	codeStore    authzstore.CodeStoreInterface
	refreshStore refreshtoken.StoreInterface
	issuer       token.IssuerInterface
	userService  user.ServiceInterface
	tokenConfig  config.TokenConfig
}

// NewAuthorizationCodeGrantHandler creates a new authorization code grant handler.
func NewAuthorizationCodeGrantHandler(codeStore authzstore.CodeStoreInterface,
	refreshStore refreshtoken.StoreInterface, issuer token.IssuerInterface,
	userService user.ServiceInterface, tokenConfig config.TokenConfig) *AuthorizationCodeGrantHandler {
	return &AuthorizationCodeGrantHandler{
		codeStore:    codeStore,
		refreshStore: refreshStore,
		issuer:       issuer,
		userService:  userService,
		tokenConfig:  tokenConfig,
	}
}

// ValidateGrant validates the authorization code token request.
func (h *AuthorizationCodeGrantHandler) ValidateGrant(tokenRequest *model.TokenRequest,
	oauthClient *clientmodel.Client) *model.ErrorResponse {
	if tokenRequest.GrantType != string(constants.GrantTypeAuthorizationCode) {
		return model.NewErrorResponse(constants.ErrorUnsupportedGrantType, "Unsupported grant type")
	}
	if tokenRequest.Code == "" {
		return model.NewErrorResponse(constants.ErrorInvalidRequest, "Missing code parameter")
	}
	return nil
}

// HandleGrant redeems the authorization code. Consumption is atomic; a replayed
// code revokes every refresh token that descends from it before failing.
func (h *AuthorizationCodeGrantHandler) HandleGrant(tokenRequest *model.TokenRequest,
	oauthClient *clientmodel.Client) (*model.TokenResponseDTO, *model.ErrorResponse) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, authzGrantLoggerComponentName))

	authzCode, err := h.codeStore.Consume(tokenRequest.Code)
	if err != nil {
		switch {
		case errors.Is(err, authzstore.ErrCodeConsumed):
			if authzCode != nil {
				if revokeErr := h.refreshStore.RevokeByCodeID(authzCode.CodeID); revokeErr != nil {
					logger.Error("Failed to revoke tokens for replayed code", log.Error(revokeErr))
				}
			}
			return nil, model.NewErrorResponse(constants.ErrorInvalidGrant,
				"Authorization code has already been used")
		case errors.Is(err, authzstore.ErrCodeExpired):
			return nil, model.NewErrorResponse(constants.ErrorInvalidGrant, "Authorization code expired")
		case errors.Is(err, authzstore.ErrCodeNotFound), errors.Is(err, authzstore.ErrCodeRevoked):
			return nil, model.NewErrorResponse(constants.ErrorInvalidGrant, "Invalid authorization code")
		default:
			logger.Error("Failed to consume authorization code", log.Error(err))
			return nil, model.NewErrorResponse(constants.ErrorServerError,
				"Failed to redeem authorization code")
		}
	}

	if authzCode.ClientID != oauthClient.ClientID {
		return nil, model.NewErrorResponse(constants.ErrorInvalidGrant,
			"Authorization code was not issued to this client")
	}
	if authzCode.RedirectURI != tokenRequest.RedirectURI {
		return nil, model.NewErrorResponse(constants.ErrorInvalidGrant,
			"redirect_uri does not match the authorization request")
	}

	if authzCode.CodeChallenge != "" {
		if tokenRequest.CodeVerifier == "" {
			return nil, model.NewErrorResponse(constants.ErrorInvalidGrant,
				"Missing code_verifier parameter")
		}
		if err := pkce.Validate(authzCode.CodeChallenge, authzCode.CodeChallengeMethod,
			tokenRequest.CodeVerifier); err != nil {
			return nil, model.NewErrorResponse(constants.ErrorInvalidGrant,
				"PKCE verification failed")
		}
	}

	accessToken, err := h.issuer.IssueAccessToken(authzCode.SubjectID, oauthClient, authzCode.Scopes)
	if err != nil {
		logger.Error("Failed to issue access token", log.Error(err))
		return nil, model.NewErrorResponse(constants.ErrorServerError, "Failed to generate token")
	}
	response := &model.TokenResponseDTO{AccessToken: *accessToken}

	if scope.HasScope(authzCode.Scopes, constants.ScopeOpenID) {
		subject, err := h.userService.GetUser(authzCode.SubjectID)
		if err != nil {
			return nil, model.NewErrorResponse(constants.ErrorInvalidGrant, "Unknown subject")
		}
		idToken, err := h.issuer.IssueIDToken(subject, oauthClient, authzCode.Scopes,
			authzCode.Nonce, authzCode.AuthTime, authzCode.AMR)
		if err != nil {
			logger.Error("Failed to issue ID token", log.Error(err))
			return nil, model.NewErrorResponse(constants.ErrorServerError, "Failed to generate token")
		}
		response.IDToken = idToken
	}

	if shouldIssueRefreshToken(oauthClient, authzCode.Scopes) {
		refreshToken := newRefreshTokenFamily(oauthClient, h.tokenConfig, authzCode.SubjectID,
			authzCode.CodeID, authzCode.Scopes, authzCode.Nonce, authzCode.AuthTime, authzCode.AMR)
		if err := h.refreshStore.Insert(refreshToken); err != nil {
			logger.Error("Failed to persist refresh token", log.Error(err))
			return nil, model.NewErrorResponse(constants.ErrorServerError, "Failed to generate token")
		}
		response.RefreshToken = refreshToken.Token
	}

	return response, nil
}
