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
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bastionlabs/bastion/internal/client"
	"github.com/bastionlabs/bastion/internal/federation"
	authzmodel "github.com/bastionlabs/bastion/internal/oauth2/authz/model"
	authzstore "github.com/bastionlabs/bastion/internal/oauth2/authz/store"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/oauth2/pkce"
	"github.com/bastionlabs/bastion/internal/oauth2/scope"
	"github.com/bastionlabs/bastion/internal/system/config"
	"github.com/bastionlabs/bastion/internal/system/log"
	"github.com/bastionlabs/bastion/internal/system/utils"
	"github.com/bastionlabs/bastion/internal/user"
	usermodel "github.com/bastionlabs/bastion/internal/user/model"
)

const handlerLoggerComponentName = "AuthorizeHandler"
const defaultCodeValidity = 300

// AuthorizeHandler drives the interactive authorization code flow: the
// initial authorization request, user authentication (local or federated),
// consent, and code issuance.
type AuthorizeHandler struct {
	registry       client.RegistryInterface
	authValidator  AuthorizationValidatorInterface
	scopeValidator scope.ValidatorInterface
	sessionStore   authzstore.SessionStoreInterface
	codeStore      authzstore.CodeStoreInterface
	userService    user.ServiceInterface
	userStore      user.StoreInterface
	broker         federation.BrokerInterface
	authzConfig    config.AuthorizationConfig
}

// NewAuthorizeHandler creates a new AuthorizeHandler.
func NewAuthorizeHandler(registry client.RegistryInterface, sessionStore authzstore.SessionStoreInterface,
	codeStore authzstore.CodeStoreInterface, userService user.ServiceInterface,
	userStore user.StoreInterface, broker federation.BrokerInterface,
	authzConfig config.AuthorizationConfig) *AuthorizeHandler {
	return &AuthorizeHandler{
		registry:       registry,
		authValidator:  NewAuthorizationValidator(),
		scopeValidator: scope.NewValidator(),
		sessionStore:   sessionStore,
		codeStore:      codeStore,
		userService:    userService,
		userStore:      userStore,
		broker:         broker,
		authzConfig:    authzConfig,
	}
}

// HandleAuthorizeRequest handles the initial OAuth2 authorization request.
// Validation failures before the client and redirect URI are verified are
// returned directly; afterwards errors are delivered via redirect.
func (ah *AuthorizeHandler) HandleAuthorizeRequest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	authzRequest := &model.AuthorizeRequest{
		ClientID:            query.Get(constants.RequestParamClientID),
		RedirectURI:         query.Get(constants.RequestParamRedirectURI),
		ResponseType:        query.Get(constants.RequestParamResponseType),
		Scope:               query.Get(constants.RequestParamScope),
		State:               query.Get(constants.RequestParamState),
		Nonce:               query.Get(constants.RequestParamNonce),
		CodeChallenge:       query.Get(constants.RequestParamCodeChallenge),
		CodeChallengeMethod: query.Get(constants.RequestParamCodeChallengeMethod),
	}

	if authzRequest.ClientID == "" {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Missing client_id parameter",
			http.StatusBadRequest, nil)
		return
	}

	oauthClient, err := ah.registry.GetClient(authzRequest.ClientID)
	if err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidClient, "Unknown client",
			http.StatusBadRequest, nil)
		return
	}

	redirectable, errCode, errDesc := ah.authValidator.ValidateInitialAuthorizationRequest(
		authzRequest, oauthClient)
	if errCode != "" {
		if redirectable {
			ah.redirectError(w, r, authzRequest.RedirectURI, errCode, errDesc, authzRequest.State)
		} else {
			utils.WriteJSONError(w, errCode, errDesc, http.StatusBadRequest, nil)
		}
		return
	}

	grantedScopes, scopeErr := ah.scopeValidator.FilterScopes(oauthClient, authzRequest.Scope)
	if scopeErr != nil {
		ah.redirectError(w, r, authzRequest.RedirectURI, scopeErr.Error, scopeErr.ErrorDescription,
			authzRequest.State)
		return
	}

	challengeMethod := authzRequest.CodeChallengeMethod
	if authzRequest.CodeChallenge != "" && challengeMethod == "" {
		challengeMethod = pkce.CodeChallengeMethodPlain
	}

	session := &authzmodel.AuthzSession{
		SessionKey:          uuid.NewString(),
		ClientID:            oauthClient.ClientID,
		RedirectURI:         authzRequest.RedirectURI,
		Scopes:              grantedScopes,
		State:               authzRequest.State,
		Nonce:               authzRequest.Nonce,
		CodeChallenge:       authzRequest.CodeChallenge,
		CodeChallengeMethod: challengeMethod,
		Status:              authzmodel.SessionStatusAwaitingAuthentication,
		TimeCreated:         time.Now(),
	}
	ah.sessionStore.AddSession(session)

	if ah.authzConfig.LoginPageURL != "" {
		loginPageURI, err := utils.GetURIWithQueryParams(ah.authzConfig.LoginPageURL, map[string]string{
			constants.RequestParamSessionKey: session.SessionKey,
			constants.RequestParamClientID:   oauthClient.ClientID,
		})
		if err != nil {
			ah.redirectError(w, r, authzRequest.RedirectURI, constants.ErrorServerError,
				"Failed to redirect to login page", authzRequest.State)
			return
		}
		http.Redirect(w, r, loginPageURI, http.StatusFound)
		return
	}

	ah.writeAuthzResponse(w, &authzmodel.AuthzResponse{SessionKey: session.SessionKey})
}

// HandleAuthenticationRequest continues a session with user credentials, or
// starts a brokered federated login when a provider is named instead.
func (ah *AuthorizeHandler) HandleAuthenticationRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))

	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Failed to parse the request",
			http.StatusBadRequest, nil)
		return
	}

	sessionKey := r.PostFormValue(constants.RequestParamSessionKey)
	session, err := ah.sessionStore.GetSession(sessionKey)
	if err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Unknown or expired session",
			http.StatusBadRequest, nil)
		return
	}
	// A repeated completion of an already completed session returns the
	// original outcome without issuing a second code.
	if session.Status == authzmodel.SessionStatusCompleted && session.IssuedCode != "" {
		ah.writeAuthzResponse(w, &authzmodel.AuthzResponse{RedirectURI: session.IssuedRedirectURI})
		return
	}
	if session.Status != authzmodel.SessionStatusAwaitingAuthentication {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Session is not awaiting authentication",
			http.StatusBadRequest, nil)
		return
	}

	// A provider name switches the session to brokered federated login.
	if providerID := r.PostFormValue(constants.RequestParamProvider); providerID != "" {
		providerRedirect, err := ah.broker.BeginLogin(providerID, session.SessionKey)
		if err != nil {
			logger.Error("Failed to begin federated login", log.Error(err))
			utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Unknown federated provider",
				http.StatusBadRequest, nil)
			return
		}
		ah.writeAuthzResponse(w, &authzmodel.AuthzResponse{
			RedirectURI: providerRedirect,
			SessionKey:  session.SessionKey,
		})
		return
	}

	username := r.PostFormValue(constants.RequestParamUsername)
	password := r.PostFormValue(constants.RequestParamPassword)

	authenticated, svcErr := ah.userService.Authenticate(username, password)
	if svcErr != nil {
		// Authentication failed after a valid redirect context was
		// established, so the error is delivered to the client via redirect.
		session.Status = authzmodel.SessionStatusDenied
		if updateErr := ah.sessionStore.UpdateSession(session); updateErr != nil {
			logger.Error("Failed to update session", log.Error(updateErr))
		}
		redirectURI := ah.errorRedirectURI(session.RedirectURI, constants.ErrorAccessDenied,
			"User authentication failed", session.State)
		ah.writeAuthzResponse(w, &authzmodel.AuthzResponse{RedirectURI: redirectURI})
		return
	}

	session.SubjectID = authenticated.ID
	session.AuthTime = time.Now()
	session.AMR = []string{constants.AMRPassword}
	ah.continueAuthorizedSession(w, session)
}

// HandleConsentRequest applies the user's consent decision to a session.
func (ah *AuthorizeHandler) HandleConsentRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))

	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Failed to parse the request",
			http.StatusBadRequest, nil)
		return
	}

	sessionKey := r.PostFormValue(constants.RequestParamSessionKey)
	session, err := ah.sessionStore.GetSession(sessionKey)
	if err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Unknown or expired session",
			http.StatusBadRequest, nil)
		return
	}

	// A double submit of the consent form returns the original outcome.
	if session.Status == authzmodel.SessionStatusCompleted && session.IssuedCode != "" {
		ah.writeAuthzResponse(w, &authzmodel.AuthzResponse{RedirectURI: session.IssuedRedirectURI})
		return
	}
	if session.Status != authzmodel.SessionStatusAwaitingConsent {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Session is not awaiting consent",
			http.StatusBadRequest, nil)
		return
	}

	decision := r.PostFormValue("decision")
	if decision != authzmodel.ConsentDecisionAllow {
		session.Status = authzmodel.SessionStatusDenied
		if updateErr := ah.sessionStore.UpdateSession(session); updateErr != nil {
			logger.Error("Failed to update session", log.Error(updateErr))
		}
		redirectURI := ah.errorRedirectURI(session.RedirectURI, constants.ErrorAccessDenied,
			"The user denied the authorization request", session.State)
		ah.writeAuthzResponse(w, &authzmodel.AuthzResponse{RedirectURI: redirectURI})
		return
	}

	ah.completeAuthorization(w, session)
}

// HandleFederationCallback handles the redirect back from a federated
// provider and resumes the local session.
func (ah *AuthorizeHandler) HandleFederationCallback(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))

	query := r.URL.Query()
	state := query.Get(constants.RequestParamState)
	code := query.Get(constants.RequestParamCode)

	if errCode := query.Get(constants.RequestParamError); errCode != "" {
		// The provider refused the login; without a resolvable session there
		// is no redirect context to deliver the error to.
		sessionKey, _, completeErr := ah.broker.CompleteLogin(state, "")
		if completeErr != nil {
			utils.WriteJSONError(w, constants.ErrorAccessDenied, "Federated login failed",
				http.StatusBadRequest, nil)
			return
		}
		ah.failSessionWithRedirect(w, r, sessionKey, "Federated login failed")
		return
	}

	sessionKey, identity, err := ah.broker.CompleteLogin(state, code)
	if err != nil {
		logger.Error("Failed to complete federated login", log.Error(err))
		utils.WriteJSONError(w, constants.ErrorAccessDenied, "Federated login failed",
			http.StatusBadRequest, nil)
		return
	}

	session, err := ah.sessionStore.GetSession(sessionKey)
	if err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Unknown or expired session",
			http.StatusBadRequest, nil)
		return
	}

	if err := ah.provisionFederatedSubject(identity); err != nil {
		logger.Error("Failed to provision federated subject", log.Error(err))
		ah.redirectError(w, r, session.RedirectURI, constants.ErrorServerError,
			"Failed to complete federated login", session.State)
		return
	}

	session.SubjectID = identity.SubjectID
	session.AuthTime = time.Now()
	session.AMR = []string{constants.AMRFederated + ":" + identity.ProviderID}

	// The callback arrives via browser navigation, so the response is a
	// redirect rather than a JSON body.
	oauthClient, err := ah.registry.GetClient(session.ClientID)
	if err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidClient, "Unknown client",
			http.StatusBadRequest, nil)
		return
	}
	if oauthClient.SkipConsent {
		redirectURI, errCode, errDesc := ah.issueCode(session)
		if errCode != "" {
			ah.redirectError(w, r, session.RedirectURI, errCode, errDesc, session.State)
			return
		}
		http.Redirect(w, r, redirectURI, http.StatusFound)
		return
	}

	session.Status = authzmodel.SessionStatusAwaitingConsent
	if err := ah.sessionStore.UpdateSession(session); err != nil {
		ah.redirectError(w, r, session.RedirectURI, constants.ErrorServerError,
			"Failed to update session", session.State)
		return
	}
	consentURI := session.RedirectURI
	if ah.authzConfig.ConsentPageURL != "" {
		uri, err := utils.GetURIWithQueryParams(ah.authzConfig.ConsentPageURL, map[string]string{
			constants.RequestParamSessionKey: session.SessionKey,
		})
		if err == nil {
			consentURI = uri
		}
	}
	http.Redirect(w, r, consentURI, http.StatusFound)
}

// continueAuthorizedSession moves an authenticated session to consent, or
// straight to code issuance for clients with implicit consent.
func (ah *AuthorizeHandler) continueAuthorizedSession(w http.ResponseWriter,
	session *authzmodel.AuthzSession) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))

	oauthClient, err := ah.registry.GetClient(session.ClientID)
	if err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidClient, "Unknown client",
			http.StatusBadRequest, nil)
		return
	}

	if oauthClient.SkipConsent {
		ah.completeAuthorization(w, session)
		return
	}

	session.Status = authzmodel.SessionStatusAwaitingConsent
	if err := ah.sessionStore.UpdateSession(session); err != nil {
		logger.Error("Failed to update session", log.Error(err))
		utils.WriteJSONError(w, constants.ErrorServerError, "Failed to update session",
			http.StatusInternalServerError, nil)
		return
	}

	response := &authzmodel.AuthzResponse{SessionKey: session.SessionKey}
	if ah.authzConfig.ConsentPageURL != "" {
		uri, err := utils.GetURIWithQueryParams(ah.authzConfig.ConsentPageURL, map[string]string{
			constants.RequestParamSessionKey: session.SessionKey,
		})
		if err == nil {
			response.RedirectURI = uri
		}
	}
	ah.writeAuthzResponse(w, response)
}

// completeAuthorization issues the authorization code for the session and
// responds with the final client redirect.
func (ah *AuthorizeHandler) completeAuthorization(w http.ResponseWriter,
	session *authzmodel.AuthzSession) {
	redirectURI, errCode, errDesc := ah.issueCode(session)
	if errCode != "" {
		redirectURI = ah.errorRedirectURI(session.RedirectURI, errCode, errDesc, session.State)
	}
	ah.writeAuthzResponse(w, &authzmodel.AuthzResponse{RedirectURI: redirectURI})
}

// issueCode mints and persists the authorization code and marks the session
// completed. Issuance is idempotent per session.
func (ah *AuthorizeHandler) issueCode(session *authzmodel.AuthzSession) (string, string, string) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))

	if session.Status == authzmodel.SessionStatusCompleted && session.IssuedCode != "" {
		return session.IssuedRedirectURI, "", ""
	}

	validity := ah.authzConfig.CodeValidityPeriod
	if validity == 0 {
		validity = defaultCodeValidity
	}

	now := time.Now()
	authzCode := &authzmodel.AuthorizationCode{
		CodeID:              uuid.NewString(),
		Code:                uuid.NewString(),
		ClientID:            session.ClientID,
		SubjectID:           session.SubjectID,
		RedirectURI:         session.RedirectURI,
		Scopes:              session.Scopes,
		CodeChallenge:       session.CodeChallenge,
		CodeChallengeMethod: session.CodeChallengeMethod,
		Nonce:               session.Nonce,
		AuthTime:            session.AuthTime,
		AMR:                 session.AMR,
		TimeCreated:         now,
		ExpiryTime:          now.Add(time.Duration(validity) * time.Second),
		State:               authzmodel.AuthCodeStateActive,
	}
	if err := ah.codeStore.Insert(authzCode); err != nil {
		logger.Error("Failed to persist authorization code", log.Error(err))
		return "", constants.ErrorServerError, "Failed to generate authorization code"
	}

	queryParams := map[string]string{
		constants.RequestParamCode: authzCode.Code,
	}
	if session.State != "" {
		queryParams[constants.RequestParamState] = session.State
	}
	redirectURI, err := utils.GetURIWithQueryParams(session.RedirectURI, queryParams)
	if err != nil {
		logger.Error("Failed to construct redirect URI", log.Error(err))
		return "", constants.ErrorServerError, "Failed to construct redirect URI"
	}

	session.Status = authzmodel.SessionStatusCompleted
	session.IssuedCode = authzCode.Code
	session.IssuedRedirectURI = redirectURI
	stored, err := ah.sessionStore.CompleteSession(session)
	if err != nil {
		if errors.Is(err, authzstore.ErrSessionAlreadyCompleted) {
			// Another completion won the race. Retire the code minted here
			// and return the first-issued outcome.
			if _, consumeErr := ah.codeStore.Consume(authzCode.Code); consumeErr != nil {
				logger.Error("Failed to retire duplicate authorization code", log.Error(consumeErr))
			}
			*session = *stored
			return stored.IssuedRedirectURI, "", ""
		}
		logger.Error("Failed to complete session", log.Error(err))
	}

	return redirectURI, "", ""
}

// provisionFederatedSubject records the federated identity in the local
// subject store so claims can be re-derived on refresh.
func (ah *AuthorizeHandler) provisionFederatedSubject(identity *federation.Identity) error {
	claims := make(map[string]string, len(identity.Claims))
	for name, value := range identity.Claims {
		if name == "sub" {
			continue
		}
		claims[name] = value
	}
	return ah.userStore.Save(&usermodel.User{
		ID:       identity.SubjectID,
		Username: identity.SubjectID,
		Claims:   claims,
	})
}

func (ah *AuthorizeHandler) failSessionWithRedirect(w http.ResponseWriter, r *http.Request,
	sessionKey, description string) {
	session, err := ah.sessionStore.GetSession(sessionKey)
	if err != nil {
		utils.WriteJSONError(w, constants.ErrorAccessDenied, description, http.StatusBadRequest, nil)
		return
	}
	session.Status = authzmodel.SessionStatusDenied
	_ = ah.sessionStore.UpdateSession(session)
	ah.redirectError(w, r, session.RedirectURI, constants.ErrorAccessDenied, description, session.State)
}

// errorRedirectURI builds the client redirect carrying an OAuth error.
func (ah *AuthorizeHandler) errorRedirectURI(redirectURI, errCode, errDesc, state string) string {
	queryParams := map[string]string{
		constants.RequestParamError:            errCode,
		constants.RequestParamErrorDescription: errDesc,
	}
	if state != "" {
		queryParams[constants.RequestParamState] = state
	}
	uri, err := utils.GetURIWithQueryParams(redirectURI, queryParams)
	if err != nil {
		return redirectURI
	}
	return uri
}

func (ah *AuthorizeHandler) redirectError(w http.ResponseWriter, r *http.Request,
	redirectURI, errCode, errDesc, state string) {
	http.Redirect(w, r, ah.errorRedirectURI(redirectURI, errCode, errDesc, state), http.StatusFound)
}

func (ah *AuthorizeHandler) writeAuthzResponse(w http.ResponseWriter,
	response *authzmodel.AuthzResponse) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Error encoding authorization response", log.Error(err))
	}
}
