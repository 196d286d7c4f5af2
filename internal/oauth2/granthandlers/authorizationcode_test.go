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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	clientmodel "github.com/bastionlabs/bastion/internal/client/model"
	authzmodel "github.com/bastionlabs/bastion/internal/oauth2/authz/model"
	authzstore "github.com/bastionlabs/bastion/internal/oauth2/authz/store"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/oauth2/pkce"
	"github.com/bastionlabs/bastion/internal/oauth2/refreshtoken"
	"github.com/bastionlabs/bastion/internal/token"
)

const testCodeVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

type AuthorizationCodeGrantHandlerTestSuite struct {
	suite.Suite
	issuer       token.IssuerInterface
	codeStore    authzstore.CodeStoreInterface
	refreshStore refreshtoken.StoreInterface
	handler      *AuthorizationCodeGrantHandler
}

func TestAuthorizationCodeGrantHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthorizationCodeGrantHandlerTestSuite))
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) SetupTest() {
	suite.issuer = newTestIssuer(suite.T())
	suite.codeStore = authzstore.NewCodeStore()
	suite.refreshStore = refreshtoken.NewStore()
	userService, _ := newTestUserService(suite.T())
	suite.handler = NewAuthorizationCodeGrantHandler(suite.codeStore, suite.refreshStore,
		suite.issuer, userService, testTokenConfig())
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) testClient() *clientmodel.Client {
	return &clientmodel.Client{
		ClientID:           "spa",
		AllowedGrantTypes:  []string{string(constants.GrantTypeAuthorizationCode)},
		AllowedScopes:      []string{"openid", "profile", "api1"},
		AllowOfflineAccess: true,
		RefreshTokenUsage:  clientmodel.RefreshTokenUsageOneTime,
	}
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) seedCode(scopes []string) *authzmodel.AuthorizationCode {
	challenge, err := pkce.GenerateCodeChallenge(testCodeVerifier, pkce.CodeChallengeMethodS256)
	suite.Require().NoError(err)

	now := time.Now()
	code := &authzmodel.AuthorizationCode{
		CodeID:              "code-id-1",
		Code:                "code-1",
		ClientID:            "spa",
		SubjectID:           "1",
		RedirectURI:         "https://spa.example.com/callback",
		Scopes:              scopes,
		CodeChallenge:       challenge,
		CodeChallengeMethod: pkce.CodeChallengeMethodS256,
		Nonce:               "n-0S6_WzA2Mj",
		AuthTime:            now,
		AMR:                 []string{constants.AMRPassword},
		TimeCreated:         now,
		ExpiryTime:          now.Add(5 * time.Minute),
		State:               authzmodel.AuthCodeStateActive,
	}
	suite.Require().NoError(suite.codeStore.Insert(code))
	return code
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) tokenRequest() *model.TokenRequest {
	return &model.TokenRequest{
		GrantType:    string(constants.GrantTypeAuthorizationCode),
		ClientID:     "spa",
		Code:         "code-1",
		RedirectURI:  "https://spa.example.com/callback",
		CodeVerifier: testCodeVerifier,
	}
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestHandleGrant() {
	suite.seedCode([]string{"openid", "profile", "api1", "offline_access"})

	response, errResp := suite.handler.HandleGrant(suite.tokenRequest(), suite.testClient())
	suite.Require().Nil(errResp)
	assert.NotEmpty(suite.T(), response.AccessToken.Token)
	assert.NotEmpty(suite.T(), response.IDToken)
	assert.NotEmpty(suite.T(), response.RefreshToken)

	claims, err := suite.issuer.Verify(response.AccessToken.Token)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "1", claims["sub"])
	assert.Equal(suite.T(), "openid profile api1", claims["scope"])

	idClaims, err := suite.issuer.Verify(response.IDToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "spa", idClaims["aud"])
	assert.Equal(suite.T(), "n-0S6_WzA2Mj", idClaims["nonce"])
	assert.Equal(suite.T(), "Alice Smith", idClaims["name"])

	record, err := suite.refreshStore.Get(response.RefreshToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "code-id-1", record.CodeID)
	assert.NotEmpty(suite.T(), record.FamilyID)
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestNoIDTokenWithoutOpenIDScope() {
	suite.seedCode([]string{"api1"})
	response, errResp := suite.handler.HandleGrant(suite.tokenRequest(), suite.testClient())
	suite.Require().Nil(errResp)
	assert.Empty(suite.T(), response.IDToken)
	assert.Empty(suite.T(), response.RefreshToken)
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestNoRefreshTokenWhenOfflineAccessDisallowed() {
	suite.seedCode([]string{"openid", "offline_access"})
	restrictedClient := suite.testClient()
	restrictedClient.AllowOfflineAccess = false
	response, errResp := suite.handler.HandleGrant(suite.tokenRequest(), restrictedClient)
	suite.Require().Nil(errResp)
	assert.Empty(suite.T(), response.RefreshToken)
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestCodeReplayRevokesIssuedTokens() {
	suite.seedCode([]string{"openid", "offline_access"})

	response, errResp := suite.handler.HandleGrant(suite.tokenRequest(), suite.testClient())
	suite.Require().Nil(errResp)
	suite.Require().NotEmpty(response.RefreshToken)

	// Redeeming the same code again fails and revokes the refresh token that
	// the first redemption produced.
	_, errResp = suite.handler.HandleGrant(suite.tokenRequest(), suite.testClient())
	suite.Require().NotNil(errResp)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, errResp.Error)

	_, err := suite.refreshStore.Get(response.RefreshToken)
	assert.ErrorIs(suite.T(), err, refreshtoken.ErrTokenRevoked)
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestUnknownCode() {
	_, errResp := suite.handler.HandleGrant(suite.tokenRequest(), suite.testClient())
	assert.NotNil(suite.T(), errResp)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, errResp.Error)
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestExpiredCode() {
	code := suite.seedCode([]string{"openid"})
	code.ExpiryTime = time.Now().Add(-time.Minute)
	suite.Require().NoError(suite.codeStore.Insert(code))

	_, errResp := suite.handler.HandleGrant(suite.tokenRequest(), suite.testClient())
	assert.NotNil(suite.T(), errResp)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, errResp.Error)
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestClientMismatch() {
	suite.seedCode([]string{"openid"})
	otherClient := suite.testClient()
	otherClient.ClientID = "other"
	_, errResp := suite.handler.HandleGrant(suite.tokenRequest(), otherClient)
	assert.NotNil(suite.T(), errResp)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, errResp.Error)
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestRedirectURIMismatch() {
	suite.seedCode([]string{"openid"})
	request := suite.tokenRequest()
	request.RedirectURI = "https://spa.example.com/other"
	_, errResp := suite.handler.HandleGrant(request, suite.testClient())
	assert.NotNil(suite.T(), errResp)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, errResp.Error)
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestWrongCodeVerifier() {
	suite.seedCode([]string{"openid"})
	request := suite.tokenRequest()
	request.CodeVerifier = "wrong-verifier-wrong-verifier-wrong-verifier-123"
	_, errResp := suite.handler.HandleGrant(request, suite.testClient())
	assert.NotNil(suite.T(), errResp)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, errResp.Error)
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestMissingCodeVerifier() {
	suite.seedCode([]string{"openid"})
	request := suite.tokenRequest()
	request.CodeVerifier = ""
	_, errResp := suite.handler.HandleGrant(request, suite.testClient())
	assert.NotNil(suite.T(), errResp)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, errResp.Error)
}

func (suite *AuthorizationCodeGrantHandlerTestSuite) TestValidateGrantMissingCode() {
	request := suite.tokenRequest()
	request.Code = ""
	errResp := suite.handler.ValidateGrant(request, suite.testClient())
	assert.NotNil(suite.T(), errResp)
	assert.Equal(suite.T(), constants.ErrorInvalidRequest, errResp.Error)
}
