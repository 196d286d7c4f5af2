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

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bastionlabs/bastion/internal/client"
	"github.com/bastionlabs/bastion/internal/discovery"
	"github.com/bastionlabs/bastion/internal/federation"
	"github.com/bastionlabs/bastion/internal/oauth2/authz"
	authzstore "github.com/bastionlabs/bastion/internal/oauth2/authz/store"
	"github.com/bastionlabs/bastion/internal/oauth2/granthandlers"
	"github.com/bastionlabs/bastion/internal/oauth2/introspect"
	"github.com/bastionlabs/bastion/internal/oauth2/refreshtoken"
	oauth2token "github.com/bastionlabs/bastion/internal/oauth2/token"
	"github.com/bastionlabs/bastion/internal/system/config"
	"github.com/bastionlabs/bastion/internal/system/database/provider"
	"github.com/bastionlabs/bastion/internal/system/services"
	"github.com/bastionlabs/bastion/internal/token"
	"github.com/bastionlabs/bastion/internal/token/jwks"
	"github.com/bastionlabs/bastion/internal/token/keys"
	"github.com/bastionlabs/bastion/internal/user"
)

const defaultSessionValidity = 600

// registerServices builds the server components from the runtime configuration
// and registers all the services with the provided HTTP multiplexer.
func registerServices(mux *http.ServeMux, home string, cfg *config.Config) error {
	keyProvider, err := keys.NewProviderFromFiles(home, cfg.Security.SigningKeyFile,
		cfg.Security.RetiredKeyFiles)
	if err != nil {
		return fmt.Errorf("failed to load signing keys: %w", err)
	}

	registry, err := client.NewRegistry(cfg.Clients)
	if err != nil {
		return fmt.Errorf("failed to build client registry: %w", err)
	}

	userStore, err := user.NewStore(cfg.Users)
	if err != nil {
		return fmt.Errorf("failed to build user store: %w", err)
	}
	userService := user.NewService(userStore)

	issuer := token.NewIssuer(keyProvider, cfg.OAuth.Token)
	broker := federation.NewBroker(cfg.Federation.Providers, nil)

	sessionValidity := cfg.OAuth.Authorization.SessionValidityPeriod
	if sessionValidity <= 0 {
		sessionValidity = defaultSessionValidity
	}
	sessionStore := authzstore.NewSessionStore(time.Duration(sessionValidity) * time.Second)

	var codeStore authzstore.CodeStoreInterface
	var refreshStore refreshtoken.StoreInterface
	if cfg.Database.Runtime.Type != "" {
		dbProvider := provider.NewDBProvider()
		codeStore = authzstore.NewCodeSQLStore(dbProvider)
		refreshStore = refreshtoken.NewSQLStore(dbProvider)
	} else {
		codeStore = authzstore.NewCodeStore()
		refreshStore = refreshtoken.NewStore()
	}

	authHandler := authz.NewAuthorizeHandler(registry, sessionStore, codeStore, userService,
		userStore, broker, cfg.OAuth.Authorization)

	grantHandlerProvider := granthandlers.NewGrantHandlerProvider(
		granthandlers.NewAuthorizationCodeGrantHandler(codeStore, refreshStore, issuer,
			userService, cfg.OAuth.Token),
		granthandlers.NewClientCredentialsGrantHandler(issuer),
		granthandlers.NewPasswordGrantHandler(userService, refreshStore, issuer, cfg.OAuth.Token),
		granthandlers.NewRefreshTokenGrantHandler(refreshStore, userService, issuer, cfg.OAuth.Token),
	)
	tokenHandler := oauth2token.NewTokenHandler(registry, grantHandlerProvider)

	introspectHandler := introspect.NewHandler(registry, introspect.NewService(issuer))
	jwksHandler := jwks.NewHandler(keyProvider)
	discoveryHandler := discovery.NewHandler(cfg.OAuth.Token.Issuer, supportedScopes(cfg.Clients))

	allowedOrigins := cfg.CORS.AllowedOrigins

	// Register the health service.
	services.NewHealthCheckService(mux, allowedOrigins)

	// Register the authorization service.
	services.NewAuthorizationService(mux, allowedOrigins, authHandler)

	// Register the token service.
	services.NewTokenService(mux, allowedOrigins, tokenHandler)

	// Register the introspection service.
	services.NewTokenIntrospectService(mux, allowedOrigins, introspectHandler)

	// Register the JWKS service.
	services.NewJWKSService(mux, allowedOrigins, jwksHandler)

	// Register the discovery service.
	services.NewDiscoveryService(mux, allowedOrigins, discoveryHandler)

	return nil
}

// supportedScopes collects the distinct scopes allowed across all registered
// clients for the discovery document.
func supportedScopes(clients []config.ClientConfig) []string {
	seen := make(map[string]struct{})
	scopes := make([]string, 0)
	for _, c := range clients {
		for _, s := range c.AllowedScopes {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			scopes = append(scopes, s)
		}
	}
	return scopes
}
