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
	usermodel "github.com/bastionlabs/bastion/internal/user/model"
)

const refreshGrantLoggerComponentName = "RefreshTokenGrantHandler"

// RefreshTokenGrantHandler rotates refresh tokens and re-issues access and ID
// tokens. Claims are re-derived from the current subject state so a revoked
// account cannot keep refreshing stale authorization.
type RefreshTokenGrantHandler struct {
	refreshStore refreshtoken.StoreInterface
	userService  user.ServiceInterface
	issuer       token.IssuerInterface
	tokenConfig  config.TokenConfig
}

// NewRefreshTokenGrantHandler creates a new refresh token grant handler.
func NewRefreshTokenGrantHandler(refreshStore refreshtoken.StoreInterface,
	userService user.ServiceInterface, issuer token.IssuerInterface,
	tokenConfig config.TokenConfig) *RefreshTokenGrantHandler {
	return &RefreshTokenGrantHandler{
		refreshStore: refreshStore,
		userService:  userService,
		issuer:       issuer,
		tokenConfig:  tokenConfig,
	}
}

// ValidateGrant validates the refresh token request.
func (h *RefreshTokenGrantHandler) ValidateGrant(tokenRequest *model.TokenRequest,
	oauthClient *clientmodel.Client) *model.ErrorResponse {
	if tokenRequest.GrantType != string(constants.GrantTypeRefreshToken) {
		return model.NewErrorResponse(constants.ErrorUnsupportedGrantType, "Unsupported grant type")
	}
	if tokenRequest.RefreshToken == "" {
		return model.NewErrorResponse(constants.ErrorInvalidRequest,
			"Missing refresh_token parameter")
	}
	return nil
}

// HandleGrant redeems the refresh token under the client's rotation policy.
// Reuse of a consumed one-time token revokes its whole family before failing.
func (h *RefreshTokenGrantHandler) HandleGrant(tokenRequest *model.TokenRequest,
	oauthClient *clientmodel.Client) (*model.TokenResponseDTO, *model.ErrorResponse) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, refreshGrantLoggerComponentName))

	oneTimeUse := oauthClient.RefreshTokenUsage != clientmodel.RefreshTokenUsageReusable

	var record *refreshtoken.RefreshToken
	var err error
	if oneTimeUse {
		record, err = h.refreshStore.Consume(tokenRequest.RefreshToken)
	} else {
		record, err = h.refreshStore.Get(tokenRequest.RefreshToken)
	}
	if err != nil {
		switch {
		case errors.Is(err, refreshtoken.ErrTokenConsumed):
			if record != nil {
				if revokeErr := h.refreshStore.RevokeFamily(record.FamilyID); revokeErr != nil {
					logger.Error("Failed to revoke token family", log.Error(revokeErr))
				}
			}
			return nil, model.NewErrorResponse(constants.ErrorInvalidGrant,
				"Refresh token has already been used")
		case errors.Is(err, refreshtoken.ErrTokenNotFound),
			errors.Is(err, refreshtoken.ErrTokenRevoked):
			return nil, model.NewErrorResponse(constants.ErrorInvalidGrant, "Invalid refresh token")
		default:
			logger.Error("Failed to look up refresh token", log.Error(err))
			return nil, model.NewErrorResponse(constants.ErrorServerError,
				"Failed to redeem refresh token")
		}
	}

	now := time.Now()
	if record.ClientID != oauthClient.ClientID {
		return nil, model.NewErrorResponse(constants.ErrorInvalidGrant,
			"Refresh token was not issued to this client")
	}
	if record.IsExpired(now) {
		return nil, model.NewErrorResponse(constants.ErrorInvalidGrant, "Refresh token expired")
	}

	var subject *usermodel.User
	if record.SubjectID != "" {
		subject, err = h.userService.GetUser(record.SubjectID)
		if err != nil {
			return nil, model.NewErrorResponse(constants.ErrorInvalidGrant, "Unknown subject")
		}
	}

	accessToken, err := h.issuer.IssueAccessToken(record.SubjectID, oauthClient, record.Scopes)
	if err != nil {
		logger.Error("Failed to issue access token", log.Error(err))
		return nil, model.NewErrorResponse(constants.ErrorServerError, "Failed to generate token")
	}
	response := &model.TokenResponseDTO{AccessToken: *accessToken}

	if subject != nil && scope.HasScope(record.Scopes, constants.ScopeOpenID) {
		idToken, err := h.issuer.IssueIDToken(subject, oauthClient, record.Scopes,
			record.Nonce, record.AuthTime, record.AMR)
		if err != nil {
			logger.Error("Failed to issue ID token", log.Error(err))
			return nil, model.NewErrorResponse(constants.ErrorServerError, "Failed to generate token")
		}
		response.IDToken = idToken
	}

	if oneTimeUse {
		successor := h.mintSuccessor(record, oauthClient, now)
		if err := h.refreshStore.Insert(successor); err != nil {
			logger.Error("Failed to persist refresh token", log.Error(err))
			return nil, model.NewErrorResponse(constants.ErrorServerError, "Failed to generate token")
		}
		response.RefreshToken = successor.Token
	} else {
		response.RefreshToken = record.Token
	}

	return response, nil
}

// mintSuccessor creates the next token in the rotation family. Sliding
// expiration restarts the lifetime from now; absolute expiration keeps the
// family's original deadline.
func (h *RefreshTokenGrantHandler) mintSuccessor(record *refreshtoken.RefreshToken,
	oauthClient *clientmodel.Client, now time.Time) *refreshtoken.RefreshToken {
	expiresAt := record.FamilyDeadline
	if oauthClient.RefreshTokenExpiration == clientmodel.RefreshTokenExpirationSliding {
		validity := refreshTokenValidity(oauthClient, h.tokenConfig)
		expiresAt = now.Add(time.Duration(validity) * time.Second)
	}
	return &refreshtoken.RefreshToken{
		Token:          refreshtoken.NewTokenValue(),
		ClientID:       record.ClientID,
		SubjectID:      record.SubjectID,
		Scopes:         record.Scopes,
		FamilyID:       record.FamilyID,
		CodeID:         record.CodeID,
		IssuedAt:       now,
		ExpiresAt:      expiresAt,
		FamilyDeadline: record.FamilyDeadline,
		Nonce:          record.Nonce,
		AuthTime:       record.AuthTime,
		AMR:            record.AMR,
	}
}
