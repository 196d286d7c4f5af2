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

// Package federation brokers end user authentication to external OIDC
// providers: it builds the outbound authorization redirect, correlates the
// provider callback back to the local authorization session, and maps the
// provider's identity into the local subject namespace.
package federation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/system/config"
	"github.com/bastionlabs/bastion/internal/system/log"
	"github.com/bastionlabs/bastion/internal/system/utils"
)

const loggerComponentName = "FederationBroker"
const defaultLoginValidity = 10 * time.Minute

// Federation errors.
var (
	ErrProviderNotFound = errors.New("federated provider not found")
	ErrUnknownState     = errors.New("unknown or expired federation state")
	ErrExchangeFailed   = errors.New("failed to exchange code at the federated provider")
	ErrUserInfoFailed   = errors.New("failed to retrieve user info from the federated provider")
)

// HTTPDoer is the outbound HTTP dependency; tests stub it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Identity is a provider-verified end user identity mapped into the local
// subject namespace as "<provider>:<sub>".
type Identity struct {
	SubjectID  string
	ProviderID string
	Claims     map[string]string
}

// BrokerInterface defines the interface for brokered federated login.
type BrokerInterface interface {
	BeginLogin(providerID, sessionKey string) (string, error)
	CompleteLogin(state, code string) (string, *Identity, error)
}

type pendingLogin struct {
	sessionKey string
	providerID string
	expiryTime time.Time
}

// Broker implements BrokerInterface over the configured providers.
type Broker struct {
	providers  map[string]config.FederatedProvider
	httpClient HTTPDoer

	mu      sync.Mutex
	pending map[string]pendingLogin
}

// NewBroker creates a federation broker for the given providers.
func NewBroker(providers []config.FederatedProvider, httpClient HTTPDoer) *Broker {
	providerMap := make(map[string]config.FederatedProvider, len(providers))
	for _, p := range providers {
		providerMap[p.ID] = p
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Broker{
		providers:  providerMap,
		httpClient: httpClient,
		pending:    make(map[string]pendingLogin),
	}
}

// BeginLogin builds the provider authorization redirect for the given local
// authorization session. The returned URL carries an opaque state value that
// correlates the provider callback back to the session.
func (b *Broker) BeginLogin(providerID, sessionKey string) (string, error) {
	provider, ok := b.providers[providerID]
	if !ok {
		return "", ErrProviderNotFound
	}

	state := uuid.NewString()
	b.mu.Lock()
	b.pending[state] = pendingLogin{
		sessionKey: sessionKey,
		providerID: providerID,
		expiryTime: time.Now().Add(defaultLoginValidity),
	}
	b.mu.Unlock()

	queryParams := map[string]string{
		constants.RequestParamClientID:     provider.ClientID,
		constants.RequestParamRedirectURI:  provider.RedirectURI,
		constants.RequestParamResponseType: constants.ResponseTypeCode,
		constants.RequestParamScope:        strings.Join(provider.Scopes, " "),
		constants.RequestParamState:        state,
	}
	return utils.GetURIWithQueryParams(provider.AuthorizationEndpoint, queryParams)
}

// CompleteLogin consumes the callback state, exchanges the authorization code
// at the provider's token endpoint, and resolves the end user identity from
// the provider's userinfo endpoint. It returns the local session key the
// login belongs to.
func (b *Broker) CompleteLogin(state, code string) (string, *Identity, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	b.mu.Lock()
	login, ok := b.pending[state]
	delete(b.pending, state)
	b.mu.Unlock()

	if !ok || !time.Now().Before(login.expiryTime) {
		return "", nil, ErrUnknownState
	}

	provider, ok := b.providers[login.providerID]
	if !ok {
		return "", nil, ErrProviderNotFound
	}

	accessToken, err := b.exchangeCode(provider, code)
	if err != nil {
		logger.Error("Code exchange with federated provider failed",
			log.String("provider", login.providerID), log.Error(err))
		return "", nil, err
	}

	claims, err := b.fetchUserInfo(provider, accessToken)
	if err != nil {
		logger.Error("User info retrieval from federated provider failed",
			log.String("provider", login.providerID), log.Error(err))
		return "", nil, err
	}

	sub := claims["sub"]
	if sub == "" {
		return "", nil, fmt.Errorf("%w: missing sub claim", ErrUserInfoFailed)
	}

	return login.sessionKey, &Identity{
		SubjectID:  login.providerID + ":" + sub,
		ProviderID: login.providerID,
		Claims:     claims,
	}, nil
}

func (b *Broker) exchangeCode(provider config.FederatedProvider, code string) (string, error) {
	form := url.Values{}
	form.Set(constants.RequestParamGrantType, string(constants.GrantTypeAuthorizationCode))
	form.Set(constants.RequestParamCode, code)
	form.Set(constants.RequestParamRedirectURI, provider.RedirectURI)
	form.Set(constants.RequestParamClientID, provider.ClientID)
	form.Set(constants.RequestParamClientSecret, provider.ClientSecret)

	req, err := http.NewRequest(http.MethodPost, provider.TokenEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrExchangeFailed, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrExchangeFailed)
	}
	return tokenResp.AccessToken, nil
}

func (b *Broker) fetchUserInfo(provider config.FederatedProvider, accessToken string) (
	map[string]string, error) {
	req, err := http.NewRequest(http.MethodGet, provider.UserInfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo endpoint returned %d", ErrUserInfoFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, err)
	}

	claims := make(map[string]string, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case string:
			claims[name] = v
		case bool, float64:
			claims[name] = fmt.Sprintf("%v", v)
		}
	}
	return claims, nil
}
