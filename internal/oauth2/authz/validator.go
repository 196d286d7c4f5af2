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

// Package authz implements the OAuth2 authorization endpoint and the
// interactive session flow behind it.
package authz

import (
	clientmodel "github.com/bastionlabs/bastion/internal/client/model"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/oauth2/pkce"
	"github.com/bastionlabs/bastion/internal/system/log"
)

// AuthorizationValidatorInterface defines the interface for validating OAuth2
// authorization requests.
type AuthorizationValidatorInterface interface {
	ValidateInitialAuthorizationRequest(req *model.AuthorizeRequest, client *clientmodel.Client) (
		bool, string, string)
}

// AuthorizationValidator validates OAuth2 authorization requests.
type AuthorizationValidator struct{}

// NewAuthorizationValidator creates a new instance of AuthorizationValidator.
func NewAuthorizationValidator() AuthorizationValidatorInterface {
	return &AuthorizationValidator{}
}

// ValidateInitialAuthorizationRequest validates the initial authorization
// request parameters. The returned bool reports whether a valid redirect
// context exists: errors found before the client and redirect URI are
// verified must be surfaced directly to the caller, never via redirect.
func (av *AuthorizationValidator) ValidateInitialAuthorizationRequest(req *model.AuthorizeRequest,
	client *clientmodel.Client) (bool, string, string) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "AuthorizationValidator"))

	if req.ClientID == "" {
		return false, constants.ErrorInvalidRequest, "Missing client_id parameter"
	}

	// Validate the redirect URI against the registered client before
	// anything else. Until it passes, no redirect may be issued.
	if err := client.ValidateRedirectURI(req.RedirectURI); err != nil {
		logger.Error("Validation failed for redirect URI", log.Error(err))
		return false, constants.ErrorInvalidRequest, "Invalid redirect URI"
	}

	if !client.IsAllowedGrantType(string(constants.GrantTypeAuthorizationCode)) {
		return true, constants.ErrorUnauthorizedClient,
			"Authorization code grant type is not allowed for the client"
	}

	if req.ResponseType == "" {
		return true, constants.ErrorInvalidRequest, "Missing response_type parameter"
	}
	if req.ResponseType != constants.ResponseTypeCode {
		return true, constants.ErrorUnsupportedResponseType, "Unsupported response type"
	}

	if redirectable, errCode, errDesc := av.validatePKCEParameters(req, client); errCode != "" {
		return redirectable, errCode, errDesc
	}

	return true, "", ""
}

// validatePKCEParameters enforces the client's PKCE policy on the request.
func (av *AuthorizationValidator) validatePKCEParameters(req *model.AuthorizeRequest,
	client *clientmodel.Client) (bool, string, string) {
	if req.CodeChallenge == "" {
		if client.RequirePKCE || client.IsPublic() {
			return true, constants.ErrorInvalidRequest, "Missing code_challenge parameter"
		}
		if req.CodeChallengeMethod != "" {
			return true, constants.ErrorInvalidRequest,
				"code_challenge_method provided without a code_challenge"
		}
		return true, "", ""
	}

	method := req.CodeChallengeMethod
	if method == "" {
		method = pkce.CodeChallengeMethodPlain
	}
	if method == pkce.CodeChallengeMethodPlain && !client.AllowPlainTextPKCE {
		return true, constants.ErrorInvalidRequest,
			"Plain code challenge method is not allowed for the client"
	}
	if err := pkce.ValidateCodeChallenge(req.CodeChallenge, method); err != nil {
		return true, constants.ErrorInvalidRequest, "Invalid code challenge"
	}

	return true, "", ""
}
