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

// Package introspect implements RFC 7662 token introspection and the
// resource-side bearer token validation built on it.
package introspect

import (
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/token"
)

// ServiceInterface defines the interface for token introspection.
type ServiceInterface interface {
	Introspect(request *model.IntrospectRequest) *model.IntrospectResponse
}

// Service introspects stateless signed tokens. Any verification failure,
// signature, expiry, or issuer, yields the inactive response without detail.
type Service struct {
	issuer token.IssuerInterface
}

// NewService creates a new introspection service.
func NewService(issuer token.IssuerInterface) *Service {
	return &Service{issuer: issuer}
}

// Introspect verifies the token and returns its claims, or active=false.
func (s *Service) Introspect(request *model.IntrospectRequest) *model.IntrospectResponse {
	claims, err := s.issuer.Verify(request.Token)
	if err != nil {
		return &model.IntrospectResponse{Active: false}
	}

	response := &model.IntrospectResponse{
		Active:    true,
		TokenType: constants.TokenTypeBearer,
	}
	if v, ok := claims["scope"].(string); ok {
		response.Scope = v
	}
	if v, ok := claims["client_id"].(string); ok {
		response.ClientID = v
	}
	if v, ok := claims["sub"].(string); ok {
		response.Sub = v
	}
	if v, ok := claims["aud"].(string); ok {
		response.Aud = v
	}
	if v, ok := claims["iss"].(string); ok {
		response.Iss = v
	}
	if v, ok := claims["jti"].(string); ok {
		response.Jti = v
	}
	if v, ok := claims["exp"].(float64); ok {
		response.Exp = int64(v)
	}
	if v, ok := claims["iat"].(float64); ok {
		response.Iat = int64(v)
	}
	if v, ok := claims["nbf"].(float64); ok {
		response.Nbf = int64(v)
	}
	return response
}
