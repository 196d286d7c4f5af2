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

// Package client provides the registry of OAuth clients known to the server.
package client

import (
	"errors"
	"fmt"

	"github.com/bastionlabs/bastion/internal/client/model"
	"github.com/bastionlabs/bastion/internal/system/config"
	"github.com/bastionlabs/bastion/internal/system/crypto/hash"
)

// ErrClientNotFound is returned when no client is registered under the given identifier.
var ErrClientNotFound = errors.New("client not found")

// RegistryInterface defines the interface for looking up registered clients.
// The registry is read-only at request time; registration changes are an
// administrative concern outside the protocol engine.
type RegistryInterface interface {
	GetClient(clientID string) (*model.Client, error)
}

// Registry implements RegistryInterface over clients seeded from configuration.
type Registry struct {
	clients map[string]*model.Client
}

// NewRegistry builds a registry from the configured client list. Plaintext
// secrets in the configuration are hashed at load time and never retained.
func NewRegistry(configured []config.ClientConfig) (*Registry, error) {
	clients := make(map[string]*model.Client, len(configured))
	for _, cc := range configured {
		if cc.ClientID == "" {
			return nil, errors.New("client_id is required for every registered client")
		}
		if _, exists := clients[cc.ClientID]; exists {
			return nil, fmt.Errorf("duplicate client_id in configuration: %s", cc.ClientID)
		}

		secretHash := ""
		if cc.Secret != "" {
			hashed, err := hash.HashCredential(cc.Secret)
			if err != nil {
				return nil, fmt.Errorf("failed to hash secret for client %s: %w", cc.ClientID, err)
			}
			secretHash = hashed
		}

		usage := cc.RefreshTokenUsage
		if usage == "" {
			usage = model.RefreshTokenUsageOneTime
		}
		expiration := cc.RefreshTokenExpiration
		if expiration == "" {
			expiration = model.RefreshTokenExpirationAbsolute
		}

		clients[cc.ClientID] = &model.Client{
			ClientID:                   cc.ClientID,
			Name:                       cc.Name,
			SecretHash:                 secretHash,
			RedirectURIs:               cc.RedirectURIs,
			PostLogoutRedirectURIs:     cc.PostLogoutRedirectURIs,
			AllowedGrantTypes:          cc.AllowedGrantTypes,
			AllowedScopes:              cc.AllowedScopes,
			RequirePKCE:                cc.RequirePKCE,
			AllowPlainTextPKCE:         cc.AllowPlainTextPKCE,
			SkipConsent:                cc.SkipConsent,
			AllowOfflineAccess:         cc.AllowOfflineAccess,
			RefreshTokenUsage:          usage,
			RefreshTokenExpiration:     expiration,
			AccessTokenValidityPeriod:  cc.AccessTokenValidity,
			IDTokenValidityPeriod:      cc.IDTokenValidity,
			RefreshTokenValidityPeriod: cc.RefreshTokenValidity,
			AllowedCORSOrigins:         cc.AllowedCORSOrigins,
		}
	}

	return &Registry{clients: clients}, nil
}

// GetClient returns the client registered under the given identifier.
func (r *Registry) GetClient(clientID string) (*model.Client, error) {
	c, ok := r.clients[clientID]
	if !ok {
		return nil, ErrClientNotFound
	}
	return c, nil
}
