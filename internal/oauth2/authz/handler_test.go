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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/bastionlabs/bastion/internal/client"
	"github.com/bastionlabs/bastion/internal/federation"
	authzmodel "github.com/bastionlabs/bastion/internal/oauth2/authz/model"
	authzstore "github.com/bastionlabs/bastion/internal/oauth2/authz/store"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/system/config"
	"github.com/bastionlabs/bastion/internal/user"
)

type stubBroker struct {
	beginRedirect  string
	beginErr       error
	loginSessions  map[string]string
	identity       *federation.Identity
	completeErr    error
	lastProviderID string
}

func (b *stubBroker) BeginLogin(providerID, sessionKey string) (string, error) {
	if b.beginErr != nil {
		return "", b.beginErr
	}
	b.lastProviderID = providerID
	if b.loginSessions == nil {
		b.loginSessions = make(map[string]string)
	}
	b.loginSessions["state-1"] = sessionKey
	return b.beginRedirect, nil
}

func (b *stubBroker) CompleteLogin(state, code string) (string, *federation.Identity, error) {
	if b.completeErr != nil {
		return "", nil, b.completeErr
	}
	sessionKey, ok := b.loginSessions[state]
	if !ok {
		return "", nil, federation.ErrUnknownState
	}
	delete(b.loginSessions, state)
	return sessionKey, b.identity, nil
}

type AuthorizeHandlerTestSuite struct {
	suite.Suite
	handler      *AuthorizeHandler
	sessionStore authzstore.SessionStoreInterface
	codeStore    authzstore.CodeStoreInterface
	userStore    user.StoreInterface
	broker       *stubBroker
}

func TestAuthorizeHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthorizeHandlerTestSuite))
}

func (suite *AuthorizeHandlerTestSuite) SetupTest() {
	registry, err := client.NewRegistry([]config.ClientConfig{
		{
			ClientID:          "spa",
			RedirectURIs:      []string{"https://spa.example.com/callback"},
			AllowedGrantTypes: []string{string(constants.GrantTypeAuthorizationCode)},
			AllowedScopes:     []string{"openid", "profile", "api1"},
			RequirePKCE:       true,
			SkipConsent:       true,
		},
		{
			ClientID:          "web",
			Secret:            "web-secret",
			RedirectURIs:      []string{"https://web.example.com/signin"},
			AllowedGrantTypes: []string{string(constants.GrantTypeAuthorizationCode)},
			AllowedScopes:     []string{"openid", "profile"},
		},
	})
	assert.NoError(suite.T(), err)

	userStore, err := user.NewStore([]config.UserConfig{
		{
			ID:       "1",
			Username: "alice",
			Password: "alice-password",
			Claims: []config.UserClaim{
				{Name: "name", Value: "Alice Smith"},
				{Name: "email", Value: "alice@example.com"},
			},
		},
	})
	assert.NoError(suite.T(), err)

	suite.sessionStore = authzstore.NewSessionStore(10 * time.Minute)
	suite.codeStore = authzstore.NewCodeStore()
	suite.userStore = userStore
	suite.broker = &stubBroker{beginRedirect: "https://login.microsoftonline.com/authorize?state=state-1"}

	suite.handler = NewAuthorizeHandler(registry, suite.sessionStore, suite.codeStore,
		user.NewService(userStore), userStore, suite.broker, config.AuthorizationConfig{
			CodeValidityPeriod: 300,
		})
}

func (suite *AuthorizeHandlerTestSuite) authorizeQuery(clientID string) url.Values {
	query := url.Values{}
	query.Set(constants.RequestParamClientID, clientID)
	query.Set(constants.RequestParamResponseType, constants.ResponseTypeCode)
	query.Set(constants.RequestParamScope, "openid profile")
	query.Set(constants.RequestParamState, "abc123")
	query.Set(constants.RequestParamNonce, "n-0S6_WzA2Mj")
	query.Set(constants.RequestParamCodeChallenge, testS256Challenge)
	query.Set(constants.RequestParamCodeChallengeMethod, "S256")
	switch clientID {
	case "spa":
		query.Set(constants.RequestParamRedirectURI, "https://spa.example.com/callback")
	case "web":
		query.Set(constants.RequestParamRedirectURI, "https://web.example.com/signin")
	}
	return query
}

func (suite *AuthorizeHandlerTestSuite) startSession(clientID string) string {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/oauth2/authorize?"+suite.authorizeQuery(clientID).Encode(), nil)
	suite.handler.HandleAuthorizeRequest(rec, req)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	var response authzmodel.AuthzResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &response))
	assert.NotEmpty(suite.T(), response.SessionKey)
	return response.SessionKey
}

func (suite *AuthorizeHandlerTestSuite) authenticate(sessionKey, username,
	password string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set(constants.RequestParamSessionKey, sessionKey)
	form.Set(constants.RequestParamUsername, username)
	form.Set(constants.RequestParamPassword, password)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/oauth2/authorize/authenticate",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	suite.handler.HandleAuthenticationRequest(rec, req)
	return rec
}

func (suite *AuthorizeHandlerTestSuite) TestAuthorizeRequestCreatesSession() {
	sessionKey := suite.startSession("spa")
	session, err := suite.sessionStore.GetSession(sessionKey)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), authzmodel.SessionStatusAwaitingAuthentication, session.Status)
	assert.Equal(suite.T(), "spa", session.ClientID)
	assert.Equal(suite.T(), []string{"openid", "profile"}, session.Scopes)
	assert.Equal(suite.T(), "S256", session.CodeChallengeMethod)
}

func (suite *AuthorizeHandlerTestSuite) TestAuthorizeRequestRedirectsToLoginPage() {
	suite.handler.authzConfig.LoginPageURL = "https://idp.example.com/login"
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/oauth2/authorize?"+suite.authorizeQuery("spa").Encode(), nil)
	suite.handler.HandleAuthorizeRequest(rec, req)

	assert.Equal(suite.T(), http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "idp.example.com", location.Host)
	assert.NotEmpty(suite.T(), location.Query().Get(constants.RequestParamSessionKey))
	assert.Equal(suite.T(), "spa", location.Query().Get(constants.RequestParamClientID))
}

func (suite *AuthorizeHandlerTestSuite) TestAuthorizeRequestUnknownClient() {
	query := suite.authorizeQuery("spa")
	query.Set(constants.RequestParamClientID, "ghost")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?"+query.Encode(), nil)
	suite.handler.HandleAuthorizeRequest(rec, req)

	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), constants.ErrorInvalidClient)
}

func (suite *AuthorizeHandlerTestSuite) TestAuthorizeRequestInvalidRedirectURINotRedirected() {
	query := suite.authorizeQuery("spa")
	query.Set(constants.RequestParamRedirectURI, "https://evil.example.com/callback")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?"+query.Encode(), nil)
	suite.handler.HandleAuthorizeRequest(rec, req)

	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Empty(suite.T(), rec.Header().Get("Location"))
}

func (suite *AuthorizeHandlerTestSuite) TestAuthorizeRequestInvalidScopeRedirected() {
	query := suite.authorizeQuery("spa")
	query.Set(constants.RequestParamScope, "unknown-scope")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?"+query.Encode(), nil)
	suite.handler.HandleAuthorizeRequest(rec, req)

	assert.Equal(suite.T(), http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "spa.example.com", location.Host)
	assert.Equal(suite.T(), constants.ErrorInvalidScope, location.Query().Get(constants.RequestParamError))
	assert.Equal(suite.T(), "abc123", location.Query().Get(constants.RequestParamState))
}

func (suite *AuthorizeHandlerTestSuite) TestAuthenticateIssuesCodeWhenConsentSkipped() {
	sessionKey := suite.startSession("spa")
	rec := suite.authenticate(sessionKey, "alice", "alice-password")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	var response authzmodel.AuthzResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &response))
	redirect, err := url.Parse(response.RedirectURI)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "spa.example.com", redirect.Host)
	assert.Equal(suite.T(), "abc123", redirect.Query().Get(constants.RequestParamState))

	code := redirect.Query().Get(constants.RequestParamCode)
	assert.NotEmpty(suite.T(), code)
	authzCode, err := suite.codeStore.Consume(code)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "1", authzCode.SubjectID)
	assert.Equal(suite.T(), []string{constants.AMRPassword}, authzCode.AMR)
	assert.Equal(suite.T(), "n-0S6_WzA2Mj", authzCode.Nonce)
}

func (suite *AuthorizeHandlerTestSuite) TestAuthenticateDoubleSubmitReturnsFirstCode() {
	sessionKey := suite.startSession("spa")
	rec := suite.authenticate(sessionKey, "alice", "alice-password")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	var first authzmodel.AuthzResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &first))
	assert.NotEmpty(suite.T(), first.RedirectURI)

	// A repeated submit of the login form on a completed session returns
	// the original redirect rather than minting a second code.
	repeatRec := suite.authenticate(sessionKey, "alice", "alice-password")
	assert.Equal(suite.T(), http.StatusOK, repeatRec.Code)

	var repeat authzmodel.AuthzResponse
	assert.NoError(suite.T(), json.Unmarshal(repeatRec.Body.Bytes(), &repeat))
	assert.Equal(suite.T(), first.RedirectURI, repeat.RedirectURI)
}

func (suite *AuthorizeHandlerTestSuite) TestConcurrentAuthenticateIssuesSingleCode() {
	sessionKey := suite.startSession("spa")

	recorders := make([]*httptest.ResponseRecorder, 2)
	var wg sync.WaitGroup
	for i := range recorders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recorders[i] = suite.authenticate(sessionKey, "alice", "alice-password")
		}(i)
	}
	wg.Wait()

	redirects := make([]string, 2)
	for i, rec := range recorders {
		assert.Equal(suite.T(), http.StatusOK, rec.Code)
		var response authzmodel.AuthzResponse
		assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &response))
		redirects[i] = response.RedirectURI
	}
	assert.Equal(suite.T(), redirects[0], redirects[1])

	redirect, err := url.Parse(redirects[0])
	assert.NoError(suite.T(), err)
	code := redirect.Query().Get(constants.RequestParamCode)
	assert.NotEmpty(suite.T(), code)

	// Only the surviving code is redeemable, and only once.
	_, err = suite.codeStore.Consume(code)
	assert.NoError(suite.T(), err)
	_, err = suite.codeStore.Consume(code)
	assert.Error(suite.T(), err)
}

func (suite *AuthorizeHandlerTestSuite) TestAuthenticateFailureRedirectsAccessDenied() {
	sessionKey := suite.startSession("spa")
	rec := suite.authenticate(sessionKey, "alice", "wrong-password")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	var response authzmodel.AuthzResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &response))
	redirect, err := url.Parse(response.RedirectURI)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), constants.ErrorAccessDenied,
		redirect.Query().Get(constants.RequestParamError))

	session, err := suite.sessionStore.GetSession(sessionKey)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), authzmodel.SessionStatusDenied, session.Status)
}

func (suite *AuthorizeHandlerTestSuite) TestAuthenticateUnknownSession() {
	rec := suite.authenticate("no-such-session", "alice", "alice-password")
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), constants.ErrorInvalidRequest)
}

func (suite *AuthorizeHandlerTestSuite) TestConsentFlow() {
	sessionKey := suite.startSession("web")
	rec := suite.authenticate(sessionKey, "alice", "alice-password")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	session, err := suite.sessionStore.GetSession(sessionKey)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), authzmodel.SessionStatusAwaitingConsent, session.Status)

	form := url.Values{}
	form.Set(constants.RequestParamSessionKey, sessionKey)
	form.Set("decision", authzmodel.ConsentDecisionAllow)
	consentRec := httptest.NewRecorder()
	consentReq := httptest.NewRequest(http.MethodPost, "/oauth2/authorize/consent",
		strings.NewReader(form.Encode()))
	consentReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	suite.handler.HandleConsentRequest(consentRec, consentReq)

	assert.Equal(suite.T(), http.StatusOK, consentRec.Code)
	var response authzmodel.AuthzResponse
	assert.NoError(suite.T(), json.Unmarshal(consentRec.Body.Bytes(), &response))
	redirect, err := url.Parse(response.RedirectURI)
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), redirect.Query().Get(constants.RequestParamCode))

	// A double submit of the consent form returns the same redirect rather
	// than minting a second code.
	repeatRec := httptest.NewRecorder()
	repeatReq := httptest.NewRequest(http.MethodPost, "/oauth2/authorize/consent",
		strings.NewReader(form.Encode()))
	repeatReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	suite.handler.HandleConsentRequest(repeatRec, repeatReq)

	var repeat authzmodel.AuthzResponse
	assert.NoError(suite.T(), json.Unmarshal(repeatRec.Body.Bytes(), &repeat))
	assert.Equal(suite.T(), response.RedirectURI, repeat.RedirectURI)
}

func (suite *AuthorizeHandlerTestSuite) TestConsentDenied() {
	sessionKey := suite.startSession("web")
	suite.authenticate(sessionKey, "alice", "alice-password")

	form := url.Values{}
	form.Set(constants.RequestParamSessionKey, sessionKey)
	form.Set("decision", authzmodel.ConsentDecisionDeny)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/oauth2/authorize/consent",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	suite.handler.HandleConsentRequest(rec, req)

	var response authzmodel.AuthzResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &response))
	redirect, err := url.Parse(response.RedirectURI)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), constants.ErrorAccessDenied,
		redirect.Query().Get(constants.RequestParamError))
	assert.Equal(suite.T(), "abc123", redirect.Query().Get(constants.RequestParamState))
}

func (suite *AuthorizeHandlerTestSuite) TestFederatedLoginBegin() {
	sessionKey := suite.startSession("spa")

	form := url.Values{}
	form.Set(constants.RequestParamSessionKey, sessionKey)
	form.Set(constants.RequestParamProvider, "microsoft")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/oauth2/authorize/authenticate",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	suite.handler.HandleAuthenticationRequest(rec, req)

	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	var response authzmodel.AuthzResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(suite.T(), suite.broker.beginRedirect, response.RedirectURI)
	assert.Equal(suite.T(), "microsoft", suite.broker.lastProviderID)
}

func (suite *AuthorizeHandlerTestSuite) TestFederatedLoginUnknownProvider() {
	sessionKey := suite.startSession("spa")
	suite.broker.beginErr = federation.ErrProviderNotFound

	form := url.Values{}
	form.Set(constants.RequestParamSessionKey, sessionKey)
	form.Set(constants.RequestParamProvider, "ghost")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/oauth2/authorize/authenticate",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	suite.handler.HandleAuthenticationRequest(rec, req)

	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
}

func (suite *AuthorizeHandlerTestSuite) TestFederationCallbackIssuesCode() {
	sessionKey := suite.startSession("spa")
	suite.broker.loginSessions = map[string]string{"state-1": sessionKey}
	suite.broker.identity = &federation.Identity{
		SubjectID:  "microsoft:9f18d",
		ProviderID: "microsoft",
		Claims:     map[string]string{"sub": "9f18d", "email": "alice@contoso.com"},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/oauth2/authorize/callback?state=state-1&code=provider-code", nil)
	suite.handler.HandleFederationCallback(rec, req)

	assert.Equal(suite.T(), http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "spa.example.com", location.Host)

	code := location.Query().Get(constants.RequestParamCode)
	assert.NotEmpty(suite.T(), code)
	authzCode, err := suite.codeStore.Consume(code)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "microsoft:9f18d", authzCode.SubjectID)
	assert.Equal(suite.T(), []string{constants.AMRFederated + ":microsoft"}, authzCode.AMR)

	// The federated identity is provisioned locally so claims can be
	// re-derived later without contacting the provider.
	provisioned, err := suite.userStore.FindByID("microsoft:9f18d")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice@contoso.com", provisioned.Claims["email"])
	_, hasSub := provisioned.Claims["sub"]
	assert.False(suite.T(), hasSub)
}

func (suite *AuthorizeHandlerTestSuite) TestFederationCallbackUnknownState() {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/oauth2/authorize/callback?state=unknown&code=provider-code", nil)
	suite.handler.HandleFederationCallback(rec, req)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
}

func (suite *AuthorizeHandlerTestSuite) TestFederationCallbackProviderError() {
	sessionKey := suite.startSession("spa")
	suite.broker.loginSessions = map[string]string{"state-1": sessionKey}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/oauth2/authorize/callback?state=state-1&error=access_denied", nil)
	suite.handler.HandleFederationCallback(rec, req)

	assert.Equal(suite.T(), http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), constants.ErrorAccessDenied,
		location.Query().Get(constants.RequestParamError))
}
