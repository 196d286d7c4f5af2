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

package user

import (
	"github.com/bastionlabs/bastion/internal/system/crypto/hash"
	"github.com/bastionlabs/bastion/internal/system/error/serviceerror"
	"github.com/bastionlabs/bastion/internal/system/log"
	"github.com/bastionlabs/bastion/internal/user/model"
)

const loggerComponentName = "SubjectService"

// ErrorInvalidCredentials is returned when authentication fails. The same
// error covers unknown usernames and wrong passwords.
var ErrorInvalidCredentials = serviceerror.ServiceError{
	Code:             "SUB-1001",
	Type:             serviceerror.ClientErrorType,
	Error:            "invalid_credentials",
	ErrorDescription: "Invalid username or password",
}

// ServiceInterface defines the contract for authenticating local subjects.
type ServiceInterface interface {
	Authenticate(username, password string) (*model.User, *serviceerror.ServiceError)
	GetUser(id string) (*model.User, error)
}

// Service is the default implementation of ServiceInterface.
type Service struct {
	store StoreInterface
}

// NewService creates a new subject service over the given store.
func NewService(store StoreInterface) *Service {
	return &Service{store: store}
}

// Authenticate verifies the username and password against the subject store.
// The credential comparison runs in constant time regardless of whether the
// username exists, so the two failure modes are indistinguishable.
func (s *Service) Authenticate(username, password string) (*model.User, *serviceerror.ServiceError) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	u, err := s.store.FindByUsername(username)
	if err != nil {
		hash.VerifyDummy(password)
		logger.Debug("Authentication failed", log.String("username", log.MaskString(username)))
		return nil, &ErrorInvalidCredentials
	}

	if !hash.VerifyCredential(u.PasswordHash, password) {
		logger.Debug("Authentication failed", log.String("username", log.MaskString(username)))
		return nil, &ErrorInvalidCredentials
	}

	return u, nil
}

// GetUser returns the user with the given subject identifier.
func (s *Service) GetUser(id string) (*model.User, error) {
	return s.store.FindByID(id)
}
