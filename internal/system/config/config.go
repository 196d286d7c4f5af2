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

// Package config provides structures and functions for loading and managing server configurations.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

// ServerConfig holds the server configuration details.
type ServerConfig struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	HTTPOnly bool   `yaml:"http_only"`
}

// SecurityConfig holds the security configuration details.
type SecurityConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	// SigningKeyFile is the PEM encoded RSA private key used for signing tokens.
	SigningKeyFile string `yaml:"signing_key_file"`
	// RetiredKeyFiles are previously active signing keys that remain in the
	// published key set so tokens signed with them stay verifiable.
	RetiredKeyFiles []string `yaml:"retired_key_files"`
}

// DataSource holds the database connection details.
type DataSource struct {
	Type     string `yaml:"type"`
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"`
	Options  string `yaml:"options"`
}

// DatabaseConfig holds the runtime database configuration details.
type DatabaseConfig struct {
	Runtime DataSource `yaml:"runtime"`
}

// TokenConfig holds the token issuance configuration details.
type TokenConfig struct {
	Issuer string `yaml:"issuer"`
	// EmitStaticAudience controls whether access tokens carry a single static
	// audience claim that every resource server accepts.
	EmitStaticAudience bool   `yaml:"emit_static_audience"`
	StaticAudience     string `yaml:"static_audience"`
	// Validity periods are in seconds.
	AccessTokenValidityPeriod  int64 `yaml:"access_token_validity_period"`
	IDTokenValidityPeriod      int64 `yaml:"id_token_validity_period"`
	RefreshTokenValidityPeriod int64 `yaml:"refresh_token_validity_period"`
}

// AuthorizationConfig holds the authorization endpoint configuration details.
type AuthorizationConfig struct {
	// CodeValidityPeriod is the authorization code lifetime in seconds.
	CodeValidityPeriod int64 `yaml:"code_validity_period"`
	// SessionValidityPeriod is the pending login session lifetime in seconds.
	SessionValidityPeriod int64  `yaml:"session_validity_period"`
	LoginPageURL          string `yaml:"login_page_url"`
	ConsentPageURL        string `yaml:"consent_page_url"`
	ErrorPageURL          string `yaml:"error_page_url"`
}

// OAuthConfig holds the OAuth protocol configuration details.
type OAuthConfig struct {
	Token         TokenConfig         `yaml:"token"`
	Authorization AuthorizationConfig `yaml:"authorization"`
}

// CORSConfig holds the server level CORS configuration details.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// FederatedProvider holds the configuration details for an external identity provider.
type FederatedProvider struct {
	ID                    string   `yaml:"id"`
	DisplayName           string   `yaml:"display_name"`
	ClientID              string   `yaml:"client_id"`
	ClientSecret          string   `yaml:"client_secret"`
	AuthorizationEndpoint string   `yaml:"authorization_endpoint"`
	TokenEndpoint         string   `yaml:"token_endpoint"`
	UserInfoEndpoint      string   `yaml:"userinfo_endpoint"`
	RedirectURI           string   `yaml:"redirect_uri"`
	Scopes                []string `yaml:"scopes"`
}

// FederationConfig holds the federation configuration details.
type FederationConfig struct {
	Providers []FederatedProvider `yaml:"providers"`
}

// ClientConfig holds a registered client seeded from the deployment configuration.
type ClientConfig struct {
	ClientID               string   `yaml:"client_id"`
	Name                   string   `yaml:"name"`
	Secret                 string   `yaml:"secret"`
	RedirectURIs           []string `yaml:"redirect_uris"`
	PostLogoutRedirectURIs []string `yaml:"post_logout_redirect_uris"`
	AllowedGrantTypes      []string `yaml:"allowed_grant_types"`
	AllowedScopes          []string `yaml:"allowed_scopes"`
	RequirePKCE            bool     `yaml:"require_pkce"`
	AllowPlainTextPKCE     bool     `yaml:"allow_plain_text_pkce"`
	SkipConsent            bool     `yaml:"skip_consent"`
	AllowOfflineAccess     bool     `yaml:"allow_offline_access"`
	RefreshTokenUsage      string   `yaml:"refresh_token_usage"`
	RefreshTokenExpiration string   `yaml:"refresh_token_expiration"`
	AccessTokenValidity    int64    `yaml:"access_token_validity_period"`
	IDTokenValidity        int64    `yaml:"id_token_validity_period"`
	RefreshTokenValidity   int64    `yaml:"refresh_token_validity_period"`
	AllowedCORSOrigins     []string `yaml:"allowed_cors_origins"`
}

// UserClaim holds a single claim of a seeded user.
type UserClaim struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// UserConfig holds a local user seeded from the deployment configuration.
type UserConfig struct {
	ID       string      `yaml:"id"`
	Username string      `yaml:"username"`
	Password string      `yaml:"password"`
	Claims   []UserClaim `yaml:"claims"`
}

// Config holds the complete configuration details of the server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Security   SecurityConfig   `yaml:"security"`
	Database   DatabaseConfig   `yaml:"database"`
	OAuth      OAuthConfig      `yaml:"oauth"`
	CORS       CORSConfig       `yaml:"cors"`
	Federation FederationConfig `yaml:"federation"`
	Clients    []ClientConfig   `yaml:"clients"`
	Users      []UserConfig     `yaml:"users"`
}

// LoadConfig loads the configuration from the given YAML file.
func LoadConfig(configFilePath string) (*Config, error) {
	cleanPath := filepath.Clean(configFilePath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}
