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

package store

import (
	"errors"
	"sync"
	"time"

	"github.com/bastionlabs/bastion/internal/oauth2/authz/model"
)

// ErrSessionNotFound is returned when a session does not exist or its TTL has
// elapsed. An expired session is indistinguishable from a missing one.
var ErrSessionNotFound = errors.New("authorization session not found")

// ErrSessionAlreadyCompleted is returned by CompleteSession when another
// caller has already recorded an issued code for the session.
var ErrSessionAlreadyCompleted = errors.New("authorization session already completed")

const defaultSessionValidity = 10 * time.Minute

// SessionStoreInterface defines the interface for authorization session storage.
//
// CompleteSession must be atomic: two concurrent completions of the same
// session must not both succeed, so that a session can never yield more than
// one authorization code.
type SessionStoreInterface interface {
	AddSession(session *model.AuthzSession)
	GetSession(key string) (*model.AuthzSession, error)
	UpdateSession(session *model.AuthzSession) error
	CompleteSession(session *model.AuthzSession) (*model.AuthzSession, error)
	ClearSession(key string)
}

type sessionStoreEntry struct {
	session    model.AuthzSession
	expiryTime time.Time
}

// SessionStore is the in-memory authorization session store with TTL based
// expiry.
type SessionStore struct {
	sessions       map[string]sessionStoreEntry
	validityPeriod time.Duration
	mu             sync.RWMutex
}

// NewSessionStore creates a session store. A non-positive validity period
// falls back to the default of ten minutes.
func NewSessionStore(validityPeriod time.Duration) *SessionStore {
	if validityPeriod <= 0 {
		validityPeriod = defaultSessionValidity
	}
	return &SessionStore{
		sessions:       make(map[string]sessionStoreEntry),
		validityPeriod: validityPeriod,
	}
}

// AddSession adds a session entry to the store.
func (s *SessionStore) AddSession(session *model.AuthzSession) {
	if session == nil || session.SessionKey == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.SessionKey] = sessionStoreEntry{
		session:    *session,
		expiryTime: time.Now().Add(s.validityPeriod),
	}
}

// GetSession retrieves a session entry. Expired entries are removed and
// reported as not found.
func (s *SessionStore) GetSession(key string) (*model.AuthzSession, error) {
	if key == "" {
		return nil, ErrSessionNotFound
	}

	s.mu.RLock()
	entry, exists := s.sessions[key]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrSessionNotFound
	}
	if !time.Now().Before(entry.expiryTime) {
		s.mu.Lock()
		delete(s.sessions, key)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	copied := entry.session
	return &copied, nil
}

// UpdateSession replaces the stored session state without extending its TTL.
func (s *SessionStore) UpdateSession(session *model.AuthzSession) error {
	if session == nil || session.SessionKey == "" {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.sessions[session.SessionKey]
	if !exists || !time.Now().Before(entry.expiryTime) {
		return ErrSessionNotFound
	}
	entry.session = *session
	s.sessions[session.SessionKey] = entry
	return nil
}

// CompleteSession records the issued code outcome on the session in a single
// critical section. If another caller completed the session first, the stored
// session is returned alongside ErrSessionAlreadyCompleted and the caller's
// outcome is discarded.
func (s *SessionStore) CompleteSession(session *model.AuthzSession) (*model.AuthzSession, error) {
	if session == nil || session.SessionKey == "" {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.sessions[session.SessionKey]
	if !exists || !time.Now().Before(entry.expiryTime) {
		return nil, ErrSessionNotFound
	}
	if entry.session.Status == model.SessionStatusCompleted && entry.session.IssuedCode != "" {
		copied := entry.session
		return &copied, ErrSessionAlreadyCompleted
	}

	entry.session = *session
	s.sessions[session.SessionKey] = entry
	copied := entry.session
	return &copied, nil
}

// ClearSession removes a session entry from the store.
func (s *SessionStore) ClearSession(key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}
