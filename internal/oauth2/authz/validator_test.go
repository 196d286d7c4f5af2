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

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	clientmodel "github.com/bastionlabs/bastion/internal/client/model"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
)

const testS256Challenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

type AuthorizationValidatorTestSuite struct {
	suite.Suite
	validator AuthorizationValidatorInterface
}

func TestAuthorizationValidatorSuite(t *testing.T) {
	suite.Run(t, new(AuthorizationValidatorTestSuite))
}

func (suite *AuthorizationValidatorTestSuite) SetupTest() {
	suite.validator = NewAuthorizationValidator()
}

func (suite *AuthorizationValidatorTestSuite) testClient() *clientmodel.Client {
	return &clientmodel.Client{
		ClientID:          "test-client",
		SecretHash:        "$2a$10$abcdefghijklmnopqrstuv",
		RedirectURIs:      []string{"https://app.example.com/callback"},
		AllowedGrantTypes: []string{string(constants.GrantTypeAuthorizationCode)},
		AllowedScopes:     []string{"openid", "profile"},
		RequirePKCE:       true,
	}
}

func (suite *AuthorizationValidatorTestSuite) validRequest() *model.AuthorizeRequest {
	return &model.AuthorizeRequest{
		ClientID:            "test-client",
		RedirectURI:         "https://app.example.com/callback",
		ResponseType:        constants.ResponseTypeCode,
		Scope:               "openid profile",
		State:               "xyz",
		CodeChallenge:       testS256Challenge,
		CodeChallengeMethod: "S256",
	}
}

func (suite *AuthorizationValidatorTestSuite) TestValidRequest() {
	redirectable, errCode, errDesc := suite.validator.ValidateInitialAuthorizationRequest(
		suite.validRequest(), suite.testClient())
	assert.True(suite.T(), redirectable)
	assert.Empty(suite.T(), errCode)
	assert.Empty(suite.T(), errDesc)
}

func (suite *AuthorizationValidatorTestSuite) TestMissingClientID() {
	request := suite.validRequest()
	request.ClientID = ""
	redirectable, errCode, _ := suite.validator.ValidateInitialAuthorizationRequest(
		request, suite.testClient())
	assert.False(suite.T(), redirectable)
	assert.Equal(suite.T(), constants.ErrorInvalidRequest, errCode)
}

func (suite *AuthorizationValidatorTestSuite) TestRedirectURIMismatchIsNotRedirectable() {
	tests := []struct {
		name        string
		redirectURI string
	}{
		{"Unregistered URI", "https://evil.example.com/callback"},
		{"Extra query parameter", "https://app.example.com/callback?extra=1"},
		{"Trailing slash", "https://app.example.com/callback/"},
		{"Scheme mismatch", "http://app.example.com/callback"},
		{"Missing URI", ""},
	}
	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			request := suite.validRequest()
			request.RedirectURI = tt.redirectURI
			redirectable, errCode, _ := suite.validator.ValidateInitialAuthorizationRequest(
				request, suite.testClient())
			assert.False(t, redirectable)
			assert.Equal(t, constants.ErrorInvalidRequest, errCode)
		})
	}
}

func (suite *AuthorizationValidatorTestSuite) TestGrantTypeNotAllowed() {
	testClient := suite.testClient()
	testClient.AllowedGrantTypes = []string{string(constants.GrantTypeClientCredentials)}
	redirectable, errCode, _ := suite.validator.ValidateInitialAuthorizationRequest(
		suite.validRequest(), testClient)
	assert.True(suite.T(), redirectable)
	assert.Equal(suite.T(), constants.ErrorUnauthorizedClient, errCode)
}

func (suite *AuthorizationValidatorTestSuite) TestUnsupportedResponseType() {
	tests := []struct {
		name         string
		responseType string
	}{
		{"Token response type", "token"},
		{"Missing response type", ""},
	}
	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			request := suite.validRequest()
			request.ResponseType = tt.responseType
			redirectable, errCode, _ := suite.validator.ValidateInitialAuthorizationRequest(
				request, suite.testClient())
			assert.True(t, redirectable)
			assert.Equal(t, constants.ErrorUnsupportedResponseType, errCode)
		})
	}
}

func (suite *AuthorizationValidatorTestSuite) TestPKCERequiredButMissing() {
	request := suite.validRequest()
	request.CodeChallenge = ""
	request.CodeChallengeMethod = ""
	redirectable, errCode, errDesc := suite.validator.ValidateInitialAuthorizationRequest(
		request, suite.testClient())
	assert.True(suite.T(), redirectable)
	assert.Equal(suite.T(), constants.ErrorInvalidRequest, errCode)
	assert.Contains(suite.T(), errDesc, "code_challenge")
}

func (suite *AuthorizationValidatorTestSuite) TestPKCERequiredForPublicClient() {
	testClient := suite.testClient()
	testClient.RequirePKCE = false
	testClient.SecretHash = ""
	request := suite.validRequest()
	request.CodeChallenge = ""
	request.CodeChallengeMethod = ""
	_, errCode, _ := suite.validator.ValidateInitialAuthorizationRequest(request, testClient)
	assert.Equal(suite.T(), constants.ErrorInvalidRequest, errCode)
}

func (suite *AuthorizationValidatorTestSuite) TestPKCEOptionalForConfidentialClient() {
	testClient := suite.testClient()
	testClient.RequirePKCE = false
	request := suite.validRequest()
	request.CodeChallenge = ""
	request.CodeChallengeMethod = ""
	_, errCode, _ := suite.validator.ValidateInitialAuthorizationRequest(request, testClient)
	assert.Empty(suite.T(), errCode)
}

func (suite *AuthorizationValidatorTestSuite) TestPlainChallengeRejectedByDefault() {
	request := suite.validRequest()
	request.CodeChallenge = "plain-verifier-value-that-is-long-enough-12345"
	request.CodeChallengeMethod = "plain"
	_, errCode, errDesc := suite.validator.ValidateInitialAuthorizationRequest(
		request, suite.testClient())
	assert.Equal(suite.T(), constants.ErrorInvalidRequest, errCode)
	assert.Contains(suite.T(), errDesc, "plain")
}

func (suite *AuthorizationValidatorTestSuite) TestPlainChallengeAllowedWhenEnabled() {
	testClient := suite.testClient()
	testClient.AllowPlainTextPKCE = true
	request := suite.validRequest()
	request.CodeChallenge = "plain-verifier-value-that-is-long-enough-12345"
	request.CodeChallengeMethod = "plain"
	_, errCode, _ := suite.validator.ValidateInitialAuthorizationRequest(request, testClient)
	assert.Empty(suite.T(), errCode)
}

func (suite *AuthorizationValidatorTestSuite) TestEmptyChallengeMethodDefaultsToPlain() {
	testClient := suite.testClient()
	testClient.AllowPlainTextPKCE = true
	request := suite.validRequest()
	request.CodeChallenge = "plain-verifier-value-that-is-long-enough-12345"
	request.CodeChallengeMethod = ""
	_, errCode, _ := suite.validator.ValidateInitialAuthorizationRequest(request, testClient)
	assert.Empty(suite.T(), errCode)
}

func (suite *AuthorizationValidatorTestSuite) TestChallengeMethodWithoutChallenge() {
	request := suite.validRequest()
	request.CodeChallenge = ""
	request.CodeChallengeMethod = "S256"
	testClient := suite.testClient()
	testClient.RequirePKCE = false
	_, errCode, _ := suite.validator.ValidateInitialAuthorizationRequest(request, testClient)
	assert.Equal(suite.T(), constants.ErrorInvalidRequest, errCode)
}

func (suite *AuthorizationValidatorTestSuite) TestMalformedChallengeFormat() {
	request := suite.validRequest()
	request.CodeChallenge = "too-short"
	_, errCode, _ := suite.validator.ValidateInitialAuthorizationRequest(
		request, suite.testClient())
	assert.Equal(suite.T(), constants.ErrorInvalidRequest, errCode)
}
