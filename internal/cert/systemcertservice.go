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

// Package cert provides system certificate operations for the server transport.
package cert

import (
	"crypto/tls"
	"errors"
	"os"
	"path"

	"github.com/bastionlabs/bastion/internal/system/config"
)

// SystemCertificateServiceInterface defines the interface for system certificate operations.
type SystemCertificateServiceInterface interface {
	GetTLSConfig(cfg *config.Config, currentDirectory string) (*tls.Config, error)
}

// SystemCertificateService implements the SystemCertificateServiceInterface.
type SystemCertificateService struct{}

// NewSystemCertificateService creates a new instance of SystemCertificateService.
func NewSystemCertificateService() SystemCertificateServiceInterface {
	return &SystemCertificateService{}
}

// GetTLSConfig loads the TLS configuration from the certificate and key files.
func (c *SystemCertificateService) GetTLSConfig(cfg *config.Config, currentDirectory string) (*tls.Config, error) {
	certFilePath := path.Join(currentDirectory, cfg.Security.CertFile)
	keyFilePath := path.Join(currentDirectory, cfg.Security.KeyFile)

	if _, err := os.Stat(certFilePath); os.IsNotExist(err) {
		return nil, errors.New("certificate file not found at " + certFilePath)
	}
	if _, err := os.Stat(keyFilePath); os.IsNotExist(err) {
		return nil, errors.New("key file not found at " + keyFilePath)
	}

	tlsCert, err := tls.LoadX509KeyPair(certFilePath, keyFilePath)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		MinVersion:   tls.VersionTLS12, // Enforce minimum TLS version 1.2
	}, nil
}
