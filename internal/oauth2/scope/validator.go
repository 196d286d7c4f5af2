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

// Package scope provides validation and filtering of requested scopes against
// the scopes a client is allowed to obtain.
package scope

import (
	"strings"

	clientmodel "github.com/bastionlabs/bastion/internal/client/model"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
)

// ValidatorInterface defines the interface for scope validation.
type ValidatorInterface interface {
	FilterScopes(client *clientmodel.Client, requestedScopes string) ([]string, *model.ErrorResponse)
}

// Validator filters requested scopes against a client's allowed scopes.
type Validator struct{}

// NewValidator creates a new scope validator.
func NewValidator() ValidatorInterface {
	return &Validator{}
}

// FilterScopes intersects the requested scopes with the scopes the client is
// allowed to obtain. Unknown scopes are dropped silently. If scopes were
// requested but none survive the intersection, an invalid_scope error is
// returned. An empty request grants every scope the client is allowed.
func (v *Validator) FilterScopes(client *clientmodel.Client, requestedScopes string) (
	[]string, *model.ErrorResponse) {
	requested := strings.Fields(requestedScopes)
	if len(requested) == 0 {
		return v.defaultScopes(client), nil
	}

	granted := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, s := range requested {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		if client.IsAllowedScope(s) {
			granted = append(granted, s)
		}
	}

	if len(granted) == 0 {
		return nil, model.NewErrorResponse(constants.ErrorInvalidScope,
			"None of the requested scopes are allowed for the client")
	}
	return granted, nil
}

// defaultScopes returns every scope the client may obtain, including
// offline_access when the client is allowed offline access.
func (v *Validator) defaultScopes(client *clientmodel.Client) []string {
	scopes := make([]string, 0, len(client.AllowedScopes)+1)
	scopes = append(scopes, client.AllowedScopes...)
	if client.AllowOfflineAccess {
		scopes = append(scopes, constants.ScopeOfflineAccess)
	}
	return scopes
}

// HasScope reports whether the given scope is present in the list.
func HasScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Join serializes a scope list into the space separated wire form.
func Join(scopes []string) string {
	return strings.Join(scopes, " ")
}
