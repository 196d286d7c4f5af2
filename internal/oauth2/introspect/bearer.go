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

package introspect

import (
	"net/http"
	"strings"

	"github.com/bastionlabs/bastion/internal/token"
)

// BearerValidator guards resource endpoints with bearer token validation:
// signature against the published key set, expiry, required scope, and, when
// an audience is configured, the aud claim. Failures return 401 with no body
// so nothing leaks about why the token was rejected.
type BearerValidator struct {
	issuer        token.IssuerInterface
	requiredScope string
	audience      string
}

// NewBearerValidator creates a bearer validator. An empty audience disables
// audience enforcement.
func NewBearerValidator(issuer token.IssuerInterface, requiredScope,
	audience string) *BearerValidator {
	return &BearerValidator{
		issuer:        issuer,
		requiredScope: requiredScope,
		audience:      audience,
	}
}

// Middleware wraps the handler with bearer token validation.
func (v *BearerValidator) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			v.reject(w)
			return
		}

		claims, err := v.issuer.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			v.reject(w)
			return
		}

		if v.requiredScope != "" {
			scopeClaim, _ := claims["scope"].(string)
			if !containsScope(scopeClaim, v.requiredScope) {
				v.reject(w)
				return
			}
		}
		if v.audience != "" {
			aud, _ := claims["aud"].(string)
			if aud != v.audience {
				v.reject(w)
				return
			}
		}

		next(w, r)
	}
}

func (v *BearerValidator) reject(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
}

func containsScope(scopeClaim, required string) bool {
	for _, s := range strings.Fields(scopeClaim) {
		if s == required {
			return true
		}
	}
	return false
}
