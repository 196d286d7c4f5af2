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

package services

import (
	"net/http"

	"github.com/bastionlabs/bastion/internal/system/server"
	"github.com/bastionlabs/bastion/internal/token/jwks"
)

// JWKSService defines the service for serving the JSON Web Key Set.
type JWKSService struct {
	ServerOpsService server.ServerOperationServiceInterface
	jwksHandler      *jwks.Handler
}

// NewJWKSService creates a new instance of JWKSService.
func NewJWKSService(mux *http.ServeMux, allowedOrigins []string,
	jwksHandler *jwks.Handler) ServiceInterface {
	instance := &JWKSService{
		ServerOpsService: server.NewServerOperationService(allowedOrigins),
		jwksHandler:      jwksHandler,
	}
	instance.RegisterRoutes(mux)

	return instance
}

// RegisterRoutes registers the routes for the JWKSService.
func (s *JWKSService) RegisterRoutes(mux *http.ServeMux) {
	opts := server.RequestWrapOptions{
		Cors: &server.Cors{
			AllowedMethods:   "GET",
			AllowedHeaders:   "Content-Type",
			AllowCredentials: false,
		},
	}
	s.ServerOpsService.WrapHandleFunction(mux, "GET /oauth2/jwks", &opts,
		s.jwksHandler.HandleJWKSRequest)
}
