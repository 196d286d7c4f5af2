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

// Package token implements the OAuth2 token endpoint.
package token

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bastionlabs/bastion/internal/client"
	clientmodel "github.com/bastionlabs/bastion/internal/client/model"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/granthandlers"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/system/crypto/hash"
	"github.com/bastionlabs/bastion/internal/system/log"
	"github.com/bastionlabs/bastion/internal/system/utils"
)

const loggerComponentName = "TokenHandler"

// TokenHandler handles requests to the OAuth2 token endpoint: it
// authenticates the client, dispatches to the grant handler, and writes the
// token or error response.
type TokenHandler struct {
	registry             client.RegistryInterface
	grantHandlerProvider granthandlers.GrantHandlerProviderInterface
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(registry client.RegistryInterface,
	grantHandlerProvider granthandlers.GrantHandlerProviderInterface) *TokenHandler {
	return &TokenHandler{
		registry:             registry,
		grantHandlerProvider: grantHandlerProvider,
	}
}

// HandleTokenRequest handles the OAuth2 token request.
func (th *TokenHandler) HandleTokenRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	if err := r.ParseForm(); err != nil {
		th.writeErrorResponse(w, http.StatusBadRequest,
			model.NewErrorResponse(constants.ErrorInvalidRequest, "Failed to parse the request"))
		return
	}

	tokenRequest := parseTokenRequest(r)

	oauthClient, errStatus, errResp := th.authenticateClient(r, tokenRequest)
	if errResp != nil {
		if errStatus == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
		}
		th.writeErrorResponse(w, errStatus, errResp)
		return
	}

	grantType := constants.GrantType(tokenRequest.GrantType)
	grantHandler, errResp := th.grantHandlerProvider.GetGrantHandler(grantType)
	if errResp != nil {
		th.writeErrorResponse(w, http.StatusBadRequest, errResp)
		return
	}

	if !oauthClient.IsAllowedGrantType(tokenRequest.GrantType) {
		th.writeErrorResponse(w, http.StatusBadRequest,
			model.NewErrorResponse(constants.ErrorUnauthorizedClient,
				"The client is not authorized to use this grant type"))
		return
	}

	if errResp := grantHandler.ValidateGrant(tokenRequest, oauthClient); errResp != nil {
		th.writeErrorResponse(w, http.StatusBadRequest, errResp)
		return
	}

	tokenResponse, errResp := grantHandler.HandleGrant(tokenRequest, oauthClient)
	if errResp != nil {
		status := http.StatusBadRequest
		if errResp.Error == constants.ErrorServerError {
			status = http.StatusInternalServerError
		}
		th.writeErrorResponse(w, status, errResp)
		return
	}

	logger.Debug("Token issued", log.String("client_id", oauthClient.ClientID),
		log.String("grant_type", tokenRequest.GrantType))
	th.writeTokenResponse(w, tokenResponse)
}

// authenticateClient resolves and authenticates the requesting client. The
// client may authenticate with a Basic header or with body parameters but not
// both; unknown clients and wrong secrets are indistinguishable.
func (th *TokenHandler) authenticateClient(r *http.Request, tokenRequest *model.TokenRequest) (
	*clientmodel.Client, int, *model.ErrorResponse) {
	basicID, basicSecret, basicErr := utils.ExtractBasicAuthCredentials(r)
	hasBasicAuth := basicErr == nil

	if hasBasicAuth && (tokenRequest.ClientID != "" || tokenRequest.ClientSecret != "") {
		return nil, http.StatusBadRequest, model.NewErrorResponse(constants.ErrorInvalidRequest,
			"The request must not use more than one client authentication method")
	}

	clientID := tokenRequest.ClientID
	clientSecret := tokenRequest.ClientSecret
	if hasBasicAuth {
		clientID = basicID
		clientSecret = basicSecret
	}
	if clientID == "" {
		return nil, http.StatusBadRequest, model.NewErrorResponse(constants.ErrorInvalidRequest,
			"Missing client_id parameter")
	}

	oauthClient, err := th.registry.GetClient(clientID)
	if err != nil {
		// Burn a hash comparison so an unknown client costs the same as a
		// wrong secret.
		hash.VerifyDummy(clientSecret)
		return nil, http.StatusUnauthorized, model.NewErrorResponse(constants.ErrorInvalidClient,
			"Client authentication failed")
	}

	if oauthClient.IsPublic() {
		if clientSecret != "" {
			return nil, http.StatusUnauthorized, model.NewErrorResponse(constants.ErrorInvalidClient,
				"Client authentication failed")
		}
		tokenRequest.ClientID = clientID
		return oauthClient, 0, nil
	}

	if !oauthClient.ValidateSecret(clientSecret) {
		return nil, http.StatusUnauthorized, model.NewErrorResponse(constants.ErrorInvalidClient,
			"Client authentication failed")
	}

	tokenRequest.ClientID = clientID
	return oauthClient, 0, nil
}

func parseTokenRequest(r *http.Request) *model.TokenRequest {
	return &model.TokenRequest{
		GrantType:    r.PostFormValue(constants.RequestParamGrantType),
		ClientID:     r.PostFormValue(constants.RequestParamClientID),
		ClientSecret: r.PostFormValue(constants.RequestParamClientSecret),
		Code:         r.PostFormValue(constants.RequestParamCode),
		RedirectURI:  r.PostFormValue(constants.RequestParamRedirectURI),
		CodeVerifier: r.PostFormValue(constants.RequestParamCodeVerifier),
		RefreshToken: r.PostFormValue(constants.RequestParamRefreshToken),
		Username:     r.PostFormValue(constants.RequestParamUsername),
		Password:     r.PostFormValue(constants.RequestParamPassword),
		Scope:        r.PostFormValue(constants.RequestParamScope),
	}
}

func (th *TokenHandler) writeTokenResponse(w http.ResponseWriter, dto *model.TokenResponseDTO) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	response := &model.TokenResponse{
		AccessToken:  dto.AccessToken.Token,
		TokenType:    dto.AccessToken.TokenType,
		ExpiresIn:    dto.AccessToken.ExpiresIn,
		RefreshToken: dto.RefreshToken,
		IDToken:      dto.IDToken,
		Scope:        strings.Join(dto.AccessToken.Scopes, " "),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Error encoding token response", log.Error(err))
	}
}

func (th *TokenHandler) writeErrorResponse(w http.ResponseWriter, statusCode int,
	errResp *model.ErrorResponse) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		logger.Error("Error encoding error response", log.Error(err))
	}
}
