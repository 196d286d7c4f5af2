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

package refreshtoken

import (
	"sync"
	"time"
)

// StoreInterface defines the interface for refresh token persistence.
//
// Consume must be atomic: two concurrent redemptions of the same token value
// must not both succeed. On ErrTokenConsumed the stored record is returned
// alongside the error so the caller can revoke the rotation family.
type StoreInterface interface {
	Insert(token *RefreshToken) error
	Get(tokenValue string) (*RefreshToken, error)
	Consume(tokenValue string) (*RefreshToken, error)
	RevokeFamily(familyID string) error
	RevokeByCodeID(codeID string) error
}

const tokenSweepInterval = time.Minute

// Store is the in-memory refresh token store.
type Store struct {
	mu        sync.Mutex
	tokens    map[string]*RefreshToken
	lastSweep time.Time
}

// NewStore creates a new in-memory refresh token store.
func NewStore() *Store {
	return &Store{
		tokens: make(map[string]*RefreshToken),
	}
}

// Insert persists a new refresh token record.
func (s *Store) Insert(token *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(time.Now())

	record := *token
	s.tokens[token.Token] = &record
	return nil
}

// sweepLocked drops records whose expiry time has passed. Consumed and
// revoked records are kept until then so replays within the token lifetime
// still trigger the family revocation cascade.
func (s *Store) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < tokenSweepInterval {
		return
	}
	s.lastSweep = now

	for value, record := range s.tokens {
		if record.IsExpired(now) {
			delete(s.tokens, value)
		}
	}
}

// Get returns the refresh token record with the given value.
func (s *Store) Get(tokenValue string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[tokenValue]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if record.Revoked {
		return nil, ErrTokenRevoked
	}

	copied := *record
	return &copied, nil
}

// Consume looks up the token and marks it consumed in a single critical
// section. A token that is already consumed returns ErrTokenConsumed together
// with the record so the caller can revoke its rotation family.
func (s *Store) Consume(tokenValue string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[tokenValue]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if record.Revoked {
		return nil, ErrTokenRevoked
	}
	if record.Consumed {
		copied := *record
		return &copied, ErrTokenConsumed
	}
	record.Consumed = true

	copied := *record
	return &copied, nil
}

// RevokeFamily revokes every token in the given rotation family.
func (s *Store) RevokeFamily(familyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.tokens {
		if record.FamilyID == familyID {
			record.Revoked = true
		}
	}
	return nil
}

// RevokeByCodeID revokes every token in every family that originated from
// the given authorization code.
func (s *Store) RevokeByCodeID(codeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.tokens {
		if record.CodeID == codeID {
			record.Revoked = true
		}
	}
	return nil
}
