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

// Package jwks publishes the server's verification keys as a JSON Web Key Set.
package jwks

import (
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/bastionlabs/bastion/internal/system/log"
	"github.com/bastionlabs/bastion/internal/token/keys"
)

// JWK represents a single RSA verification key in JWK form.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Response represents the JWKS document served at the JWKS endpoint.
type Response struct {
	Keys []JWK `json:"keys"`
}

// Handler serves the JSON Web Key Set built from the key provider. Every
// published key appears in the set so tokens signed before a rotation keep
// verifying.
type Handler struct {
	keyProvider keys.ProviderInterface
}

// NewHandler creates a JWKS handler over the given key provider.
func NewHandler(keyProvider keys.ProviderInterface) *Handler {
	return &Handler{keyProvider: keyProvider}
}

// HandleJWKSRequest handles the HTTP request to retrieve the JSON Web Key Set.
func (h *Handler) HandleJWKSRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "JWKSHandler"))

	response := BuildResponse(h.keyProvider.PublicKeys())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Error encoding JWKS response", log.Error(err))
	}
}

// BuildResponse converts the given signing keys into a JWKS document.
func BuildResponse(signingKeys []*keys.SigningKey) *Response {
	jwkSet := make([]JWK, 0, len(signingKeys))
	for _, key := range signingKeys {
		pub := &key.Private.PublicKey
		jwkSet = append(jwkSet, JWK{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: key.KID,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	return &Response{Keys: jwkSet}
}
