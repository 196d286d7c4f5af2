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

// Package user provides the subject store and local credential authentication.
package user

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bastionlabs/bastion/internal/system/config"
	"github.com/bastionlabs/bastion/internal/system/crypto/hash"
	"github.com/bastionlabs/bastion/internal/user/model"
)

// ErrUserNotFound is returned when no user exists for the given identifier.
var ErrUserNotFound = errors.New("user not found")

// StoreInterface defines the interface for subject lookups.
type StoreInterface interface {
	FindByID(id string) (*model.User, error)
	FindByUsername(username string) (*model.User, error)
	// Save stores a user record. Federated logins use it to provision
	// subjects mapped from external provider claims.
	Save(user *model.User) error
}

// Store implements StoreInterface over users seeded from configuration.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*model.User
	byUsername map[string]*model.User
}

// NewStore builds a store from the configured user list. Plaintext passwords
// in the configuration are hashed at load time and never retained.
func NewStore(configured []config.UserConfig) (*Store, error) {
	s := &Store{
		byID:       make(map[string]*model.User, len(configured)),
		byUsername: make(map[string]*model.User, len(configured)),
	}

	for _, uc := range configured {
		if uc.ID == "" || uc.Username == "" {
			return nil, errors.New("id and username are required for every seeded user")
		}
		if _, exists := s.byUsername[uc.Username]; exists {
			return nil, fmt.Errorf("duplicate username in configuration: %s", uc.Username)
		}

		passwordHash, err := hash.HashCredential(uc.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for user %s: %w", uc.Username, err)
		}

		claims := make(map[string]string, len(uc.Claims))
		for _, claim := range uc.Claims {
			claims[claim.Name] = claim.Value
		}

		u := &model.User{
			ID:           uc.ID,
			Username:     uc.Username,
			PasswordHash: passwordHash,
			Claims:       claims,
		}
		s.byID[u.ID] = u
		s.byUsername[u.Username] = u
	}

	return s, nil
}

// FindByID returns the user with the given subject identifier.
func (s *Store) FindByID(id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

// FindByUsername returns the user with the given username.
func (s *Store) FindByUsername(username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byUsername[username]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

// Save stores the user record, keyed by both identifier and username.
func (s *Store) Save(u *model.User) error {
	if u == nil || u.ID == "" {
		return errors.New("user id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[u.ID] = u
	if u.Username != "" {
		s.byUsername[u.Username] = u
	}
	return nil
}
