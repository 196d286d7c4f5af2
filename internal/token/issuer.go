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

// Package token provides issuance and verification of the signed JWTs the
// server hands out: access tokens and OIDC ID tokens.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	clientmodel "github.com/bastionlabs/bastion/internal/client/model"
	"github.com/bastionlabs/bastion/internal/oauth2/constants"
	"github.com/bastionlabs/bastion/internal/oauth2/model"
	"github.com/bastionlabs/bastion/internal/system/config"
	"github.com/bastionlabs/bastion/internal/token/keys"
	usermodel "github.com/bastionlabs/bastion/internal/user/model"
)

const defaultAccessTokenValidity = 3600
const defaultIDTokenValidity = 300

// Token verification errors.
var (
	ErrUnknownKeyID = errors.New("token signed with an unknown key")
	ErrInvalidToken = errors.New("token is invalid")
)

// IssuerInterface defines the interface for token issuance and verification.
type IssuerInterface interface {
	IssueAccessToken(subjectID string, client *clientmodel.Client, scopes []string) (*model.TokenDTO, error)
	IssueIDToken(user *usermodel.User, client *clientmodel.Client, scopes []string, nonce string,
		authTime time.Time, amr []string) (string, error)
	Verify(tokenString string) (jwt.MapClaims, error)
}

// Issuer signs tokens with the active key of the key provider.
type Issuer struct {
	keyProvider keys.ProviderInterface
	tokenConfig config.TokenConfig
}

// NewIssuer creates a token issuer for the given key provider and token
// configuration.
func NewIssuer(keyProvider keys.ProviderInterface, tokenConfig config.TokenConfig) IssuerInterface {
	return &Issuer{
		keyProvider: keyProvider,
		tokenConfig: tokenConfig,
	}
}

// IssueAccessToken issues a signed JWT access token for the given subject and
// client. For client credentials issuance the subject is empty and the sub
// claim is omitted. The offline_access scope never appears in the scope claim.
func (i *Issuer) IssueAccessToken(subjectID string, client *clientmodel.Client, scopes []string) (
	*model.TokenDTO, error) {
	validity := client.AccessTokenValidityPeriod
	if validity == 0 {
		validity = i.tokenConfig.AccessTokenValidityPeriod
	}
	if validity == 0 {
		validity = defaultAccessTokenValidity
	}

	now := time.Now()
	tokenScopes := excludeScope(scopes, constants.ScopeOfflineAccess)

	claims := jwt.MapClaims{
		"iss":       i.tokenConfig.Issuer,
		"client_id": client.ClientID,
		"scope":     joinScopes(tokenScopes),
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"exp":       now.Add(time.Duration(validity) * time.Second).Unix(),
		"jti":       uuid.NewString(),
	}
	if subjectID != "" {
		claims["sub"] = subjectID
	}
	if i.tokenConfig.EmitStaticAudience {
		claims["aud"] = i.staticAudience()
	}

	signed, err := i.sign(claims)
	if err != nil {
		return nil, err
	}

	return &model.TokenDTO{
		Token:     signed,
		TokenType: constants.TokenTypeBearer,
		IssuedAt:  now.Unix(),
		ExpiresIn: validity,
		Scopes:    tokenScopes,
		ClientID:  client.ClientID,
	}, nil
}

// IssueIDToken issues a signed OIDC ID token for the given user and client
// with the claims released by the granted scopes.
func (i *Issuer) IssueIDToken(user *usermodel.User, client *clientmodel.Client, scopes []string,
	nonce string, authTime time.Time, amr []string) (string, error) {
	validity := client.IDTokenValidityPeriod
	if validity == 0 {
		validity = i.tokenConfig.IDTokenValidityPeriod
	}
	if validity == 0 {
		validity = defaultIDTokenValidity
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":       i.tokenConfig.Issuer,
		"sub":       user.ID,
		"aud":       client.ClientID,
		"iat":       now.Unix(),
		"exp":       now.Add(time.Duration(validity) * time.Second).Unix(),
		"auth_time": authTime.Unix(),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	if len(amr) > 0 {
		claims["amr"] = amr
	}
	for name, value := range user.ClaimsForScopes(scopes) {
		claims[name] = value
	}

	return i.sign(claims)
}

// Verify parses and validates a JWT issued by this server, resolving the
// verification key from the kid header. Signature, expiry, and issuer are all
// checked.
func (i *Issuer) Verify(tokenString string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, ErrUnknownKeyID
		}
		key, ok := i.keyProvider.KeyByID(kid)
		if !ok {
			return nil, ErrUnknownKeyID
		}
		return &key.Private.PublicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(i.tokenConfig.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *Issuer) sign(claims jwt.MapClaims) (string, error) {
	key := i.keyProvider.ActiveKey()
	if key == nil {
		return "", errors.New("no active signing key")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = key.KID
	return token.SignedString(key.Private)
}

func (i *Issuer) staticAudience() string {
	if i.tokenConfig.StaticAudience != "" {
		return i.tokenConfig.StaticAudience
	}
	return i.tokenConfig.Issuer + "/resources"
}

func joinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

func excludeScope(scopes []string, excluded string) []string {
	filtered := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s != excluded {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
