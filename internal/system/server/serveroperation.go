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

// Package server provides server wide operations and utilities.
package server

import (
	"net/http"

	"github.com/bastionlabs/bastion/internal/system/middleware"
)

// Cors holds the per-route CORS options used when wrapping a handler.
type Cors struct {
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials bool
}

// RequestWrapOptions holds the options applied when registering a route.
type RequestWrapOptions struct {
	Cors *Cors
}

// ServerOperationServiceInterface defines the interface for server operations.
type ServerOperationServiceInterface interface {
	WrapHandleFunction(mux *http.ServeMux, pattern string, opts *RequestWrapOptions,
		handler http.HandlerFunc)
}

// ServerOperationService implements the ServerOperationServiceInterface.
type ServerOperationService struct {
	allowedOrigins []string
}

// NewServerOperationService creates a new instance of ServerOperationService.
func NewServerOperationService(allowedOrigins []string) ServerOperationServiceInterface {
	return &ServerOperationService{
		allowedOrigins: allowedOrigins,
	}
}

// WrapHandleFunction registers the handler with the multiplexer, applying the configured options.
func (s *ServerOperationService) WrapHandleFunction(mux *http.ServeMux, pattern string,
	opts *RequestWrapOptions, handler http.HandlerFunc) {
	if opts == nil || opts.Cors == nil {
		mux.HandleFunc(pattern, handler)
		return
	}

	corsOpts := middleware.CORSOptions{
		AllowedMethods:   opts.Cors.AllowedMethods,
		AllowedHeaders:   opts.Cors.AllowedHeaders,
		AllowCredentials: opts.Cors.AllowCredentials,
	}
	mux.HandleFunc(middleware.WithCORS(pattern, handler, s.allowedOrigins, corsOpts))
}
