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

package discovery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleDiscoveryRequest(t *testing.T) {
	handler := NewHandler("https://localhost:8090", []string{"openid", "profile", "email", "api1"})

	req := httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil)
	rec := httptest.NewRecorder()
	handler.HandleDiscoveryRequest(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var metadata Metadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metadata))
	assert.Equal(t, "https://localhost:8090", metadata.Issuer)
	assert.Equal(t, "https://localhost:8090/oauth2/authorize", metadata.AuthorizationEndpoint)
	assert.Equal(t, "https://localhost:8090/oauth2/token", metadata.TokenEndpoint)
	assert.Equal(t, "https://localhost:8090/oauth2/jwks", metadata.JWKSURI)
	assert.Equal(t, []string{"code"}, metadata.ResponseTypesSupported)
	assert.Contains(t, metadata.GrantTypesSupported, "authorization_code")
	assert.Contains(t, metadata.GrantTypesSupported, "refresh_token")
	assert.Equal(t, []string{"S256", "plain"}, metadata.CodeChallengeMethodsSupported)
	assert.Equal(t, []string{"RS256"}, metadata.IDTokenSigningAlgValuesSupported)
}
