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

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/bastionlabs/bastion/internal/system/healthcheck/model"
	"github.com/bastionlabs/bastion/internal/system/healthcheck/service"
)

type stubHealthCheckService struct {
	status model.ServerStatus
}

func (s *stubHealthCheckService) CheckReadiness() model.ServerStatus {
	return s.status
}

type stubHealthCheckProvider struct {
	service service.HealthCheckServiceInterface
}

func (p *stubHealthCheckProvider) GetHealthCheckService() service.HealthCheckServiceInterface {
	return p.service
}

type HealthCheckHandlerTestSuite struct {
	suite.Suite
	handler *HealthCheckHandler
	service *stubHealthCheckService
}

func TestHealthCheckHandlerSuite(t *testing.T) {
	suite.Run(t, new(HealthCheckHandlerTestSuite))
}

func (suite *HealthCheckHandlerTestSuite) SetupTest() {
	suite.service = &stubHealthCheckService{}
	suite.handler = NewHealthCheckHandler()
	suite.handler.Provider = &stubHealthCheckProvider{service: suite.service}
}

func (suite *HealthCheckHandlerTestSuite) TestHandleLivenessRequest() {
	req := httptest.NewRequest("GET", "/health/liveness", nil)
	rec := httptest.NewRecorder()

	suite.handler.HandleLivenessRequest(rec, req)

	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func (suite *HealthCheckHandlerTestSuite) TestHandleReadinessRequest_Up() {
	suite.service.status = model.ServerStatus{
		Status: model.StatusUp,
		ServiceStatus: []model.ServiceStatus{
			{ServiceName: "RuntimeDB", Status: model.StatusUp},
		},
	}

	req := httptest.NewRequest("GET", "/health/readiness", nil)
	rec := httptest.NewRecorder()

	suite.handler.HandleReadinessRequest(rec, req)

	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	var body model.ServerStatus
	err := json.Unmarshal(rec.Body.Bytes(), &body)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), model.StatusUp, body.Status)
	assert.Len(suite.T(), body.ServiceStatus, 1)
	assert.Equal(suite.T(), "RuntimeDB", body.ServiceStatus[0].ServiceName)
}

func (suite *HealthCheckHandlerTestSuite) TestHandleReadinessRequest_Down() {
	suite.service.status = model.ServerStatus{
		Status: model.StatusDown,
		ServiceStatus: []model.ServiceStatus{
			{ServiceName: "RuntimeDB", Status: model.StatusDown},
		},
	}

	req := httptest.NewRequest("GET", "/health/readiness", nil)
	rec := httptest.NewRecorder()

	suite.handler.HandleReadinessRequest(rec, req)

	assert.Equal(suite.T(), http.StatusServiceUnavailable, rec.Code)

	var body model.ServerStatus
	err := json.Unmarshal(rec.Body.Bytes(), &body)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), model.StatusDown, body.Status)
}
