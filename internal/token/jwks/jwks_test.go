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

package jwks

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastionlabs/bastion/internal/token/keys"
)

func newTestProvider(t *testing.T, retiredCount int) (*keys.Provider, *keys.SigningKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	active, err := keys.NewSigningKey(privateKey)
	require.NoError(t, err)

	retired := make([]*keys.SigningKey, 0, retiredCount)
	for i := 0; i < retiredCount; i++ {
		rk, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		sk, err := keys.NewSigningKey(rk)
		require.NoError(t, err)
		retired = append(retired, sk)
	}

	provider, err := keys.NewProvider(active, retired)
	require.NoError(t, err)
	return provider, active
}

func TestHandleJWKSRequest(t *testing.T) {
	provider, active := newTestProvider(t, 1)
	handler := NewHandler(provider)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/jwks", nil)
	rec := httptest.NewRecorder()
	handler.HandleJWKSRequest(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Keys, 2)

	// The active key is published first.
	assert.Equal(t, active.KID, response.Keys[0].Kid)
	for _, key := range response.Keys {
		assert.Equal(t, "RSA", key.Kty)
		assert.Equal(t, "sig", key.Use)
		assert.Equal(t, "RS256", key.Alg)
		assert.NotEmpty(t, key.N)
		assert.Equal(t, "AQAB", key.E)
	}
}

func TestBuildResponseEmptyKeySet(t *testing.T) {
	response := BuildResponse(nil)
	assert.NotNil(t, response.Keys)
	assert.Empty(t, response.Keys)
}
