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

// Package model defines the data structures for local subjects.
package model

// User represents an authenticated subject and its claims.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	// Claims holds standard OIDC claims such as name, given_name,
	// family_name, email, email_verified, role and website.
	Claims map[string]string
}

// scopeClaims maps a requested scope to the claims it releases into ID tokens.
var scopeClaims = map[string][]string{
	"profile": {"name", "given_name", "family_name", "website", "role"},
	"email":   {"email", "email_verified"},
}

// ClaimsForScopes returns the subset of the user's claims released by the
// granted scopes.
func (u *User) ClaimsForScopes(scopes []string) map[string]string {
	released := make(map[string]string)
	for _, scope := range scopes {
		for _, claim := range scopeClaims[scope] {
			if value, ok := u.Claims[claim]; ok {
				released[claim] = value
			}
		}
	}
	return released
}
