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
	"encoding/json"
	"net/http"

	"github.com/bastionlabs/bastion/internal/client"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/system/crypto/hash"
	"github.com/bastionlabs/bastion/internal/system/log"
	"github.com/bastionlabs/bastion/internal/system/utils"
)

const handlerLoggerComponentName = "IntrospectHandler"

// Handler serves the introspection endpoint. Callers authenticate as a
// registered client with Basic credentials; the endpoint is for resource
// servers, not end users.
type Handler struct {
	registry client.RegistryInterface
	service  ServiceInterface
}

// NewHandler creates a new introspection handler.
func NewHandler(registry client.RegistryInterface, service ServiceInterface) *Handler {
	return &Handler{
		registry: registry,
		service:  service,
	}
}

// HandleIntrospectRequest handles a token introspection request.
func (h *Handler) HandleIntrospectRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))

	clientID, clientSecret, err := utils.ExtractBasicAuthCredentials(r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Basic realm="introspect"`)
		utils.WriteJSONError(w, constants.ErrorInvalidClient, "Client authentication failed",
			http.StatusUnauthorized, nil)
		return
	}
	oauthClient, err := h.registry.GetClient(clientID)
	if err != nil {
		// Burn a comparison so an unknown client takes as long as a failed
		// secret check.
		hash.VerifyDummy(clientSecret)
		w.Header().Set("WWW-Authenticate", `Basic realm="introspect"`)
		utils.WriteJSONError(w, constants.ErrorInvalidClient, "Client authentication failed",
			http.StatusUnauthorized, nil)
		return
	}
	if !oauthClient.ValidateSecret(clientSecret) {
		w.Header().Set("WWW-Authenticate", `Basic realm="introspect"`)
		utils.WriteJSONError(w, constants.ErrorInvalidClient, "Client authentication failed",
			http.StatusUnauthorized, nil)
		return
	}

	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Failed to parse the request",
			http.StatusBadRequest, nil)
		return
	}
	tokenValue := r.PostFormValue(constants.RequestParamToken)
	if tokenValue == "" {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Missing token parameter",
			http.StatusBadRequest, nil)
		return
	}

	response := h.service.Introspect(&model.IntrospectRequest{
		Token:         tokenValue,
		TokenTypeHint: r.PostFormValue(constants.RequestParamTokenTypeHint),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Error encoding introspection response", log.Error(err))
	}
}
