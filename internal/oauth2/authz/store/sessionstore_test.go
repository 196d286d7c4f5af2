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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastionlabs/bastion/internal/oauth2/authz/model"
)

func newTestSession(key string) *model.AuthzSession {
	return &model.AuthzSession{
		SessionKey:  key,
		ClientID:    "spa",
		RedirectURI: "https://localhost:5002/signin-callback",
		Scopes:      []string{"openid"},
		Status:      model.SessionStatusAwaitingAuthentication,
		TimeCreated: time.Now(),
	}
}

func TestSessionStoreAddAndGet(t *testing.T) {
	store := NewSessionStore(time.Minute)
	store.AddSession(newTestSession("key-1"))

	session, err := store.GetSession("key-1")
	require.NoError(t, err)
	assert.Equal(t, "spa", session.ClientID)
	assert.Equal(t, model.SessionStatusAwaitingAuthentication, session.Status)
}

func TestSessionStoreGetUnknownKey(t *testing.T) {
	store := NewSessionStore(time.Minute)

	_, err := store.GetSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.GetSession("")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(time.Nanosecond)
	store.AddSession(newTestSession("key-1"))
	time.Sleep(time.Millisecond)

	_, err := store.GetSession("key-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreUpdate(t *testing.T) {
	store := NewSessionStore(time.Minute)
	store.AddSession(newTestSession("key-1"))

	session, err := store.GetSession("key-1")
	require.NoError(t, err)
	session.Status = model.SessionStatusCompleted
	session.SubjectID = "1"
	require.NoError(t, store.UpdateSession(session))

	updated, err := store.GetSession("key-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, updated.Status)
	assert.Equal(t, "1", updated.SubjectID)
}

func TestSessionStoreUpdateMissingSession(t *testing.T) {
	store := NewSessionStore(time.Minute)
	err := store.UpdateSession(newTestSession("missing"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreCompleteSession(t *testing.T) {
	store := NewSessionStore(time.Minute)
	store.AddSession(newTestSession("key-1"))

	session, err := store.GetSession("key-1")
	require.NoError(t, err)
	session.Status = model.SessionStatusCompleted
	session.SubjectID = "1"
	session.IssuedCode = "code-first"
	session.IssuedRedirectURI = "https://localhost:5002/signin-callback?code=code-first"

	stored, err := store.CompleteSession(session)
	require.NoError(t, err)
	assert.Equal(t, "code-first", stored.IssuedCode)
}

func TestSessionStoreCompleteSessionKeepsFirstOutcome(t *testing.T) {
	store := NewSessionStore(time.Minute)
	store.AddSession(newTestSession("key-1"))

	first, err := store.GetSession("key-1")
	require.NoError(t, err)
	first.Status = model.SessionStatusCompleted
	first.SubjectID = "1"
	first.IssuedCode = "code-first"
	first.IssuedRedirectURI = "https://localhost:5002/signin-callback?code=code-first"
	_, err = store.CompleteSession(first)
	require.NoError(t, err)

	second := newTestSession("key-1")
	second.Status = model.SessionStatusCompleted
	second.SubjectID = "1"
	second.IssuedCode = "code-second"
	second.IssuedRedirectURI = "https://localhost:5002/signin-callback?code=code-second"

	stored, err := store.CompleteSession(second)
	assert.ErrorIs(t, err, ErrSessionAlreadyCompleted)
	require.NotNil(t, stored)
	assert.Equal(t, "code-first", stored.IssuedCode)
	assert.Equal(t, "https://localhost:5002/signin-callback?code=code-first", stored.IssuedRedirectURI)

	persisted, err := store.GetSession("key-1")
	require.NoError(t, err)
	assert.Equal(t, "code-first", persisted.IssuedCode)
}

func TestSessionStoreCompleteMissingSession(t *testing.T) {
	store := NewSessionStore(time.Minute)

	_, err := store.CompleteSession(newTestSession("missing"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.CompleteSession(nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreClear(t *testing.T) {
	store := NewSessionStore(time.Minute)
	store.AddSession(newTestSession("key-1"))
	store.ClearSession("key-1")

	_, err := store.GetSession("key-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
