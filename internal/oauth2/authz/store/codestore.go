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

// Package store provides persistence for authorization codes and in-flight
// authorization sessions.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/bastionlabs/bastion/internal/oauth2/authz/model"
)

// Authorization code store errors.
var (
	ErrCodeNotFound = errors.New("authorization code not found")
	ErrCodeConsumed = errors.New("authorization code already consumed")
	ErrCodeExpired  = errors.New("authorization code expired")
	ErrCodeRevoked  = errors.New("authorization code revoked")
)

// CodeStoreInterface defines the interface for authorization code persistence.
//
// Consume must be atomic: two concurrent redemptions of the same code must
// not both succeed. On ErrCodeConsumed the stored code is returned alongside
// the error so the caller can revoke tokens already issued from it.
type CodeStoreInterface interface {
	Insert(code *model.AuthorizationCode) error
	Consume(codeValue string) (*model.AuthorizationCode, error)
}

const codeSweepInterval = time.Minute

// CodeStore is the in-memory authorization code store.
type CodeStore struct {
	mu        sync.Mutex
	codes     map[string]*model.AuthorizationCode
	lastSweep time.Time
}

// NewCodeStore creates a new in-memory authorization code store.
func NewCodeStore() *CodeStore {
	return &CodeStore{
		codes: make(map[string]*model.AuthorizationCode),
	}
}

// Insert persists a newly issued authorization code.
func (s *CodeStore) Insert(code *model.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(time.Now())

	record := *code
	s.codes[code.Code] = &record
	return nil
}

// sweepLocked drops records whose expiry time has passed. Consumed and
// revoked records are kept until then so replays within the code lifetime
// still classify as such; afterwards every outcome is an expired rejection.
func (s *CodeStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < codeSweepInterval {
		return
	}
	s.lastSweep = now

	for value, record := range s.codes {
		if record.IsExpired(now) {
			delete(s.codes, value)
		}
	}
}

// Consume looks the code up and marks it consumed in a single critical
// section. An already consumed code returns ErrCodeConsumed so the caller can
// treat the reuse as a replay. An expired code is deterministically rejected
// regardless of whether it was ever garbage collected.
func (s *CodeStore) Consume(codeValue string) (*model.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.codes[codeValue]
	if !ok {
		return nil, ErrCodeNotFound
	}

	switch record.State {
	case model.AuthCodeStateInactive:
		copied := *record
		return &copied, ErrCodeConsumed
	case model.AuthCodeStateRevoked:
		return nil, ErrCodeRevoked
	case model.AuthCodeStateExpired:
		return nil, ErrCodeExpired
	}

	if record.IsExpired(time.Now()) {
		record.State = model.AuthCodeStateExpired
		return nil, ErrCodeExpired
	}

	record.State = model.AuthCodeStateInactive

	copied := *record
	return &copied, nil
}
