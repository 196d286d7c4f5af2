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

// Package pkce provides PKCE (Proof Key for Code Exchange) validation utilities
// as defined in RFC 7636.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

// PKCE code challenge methods.
const (
	CodeChallengeMethodPlain = "plain"
	CodeChallengeMethodS256  = "S256"
)

// PKCE validation errors.
var (
	ErrInvalidCodeVerifier    = errors.New("invalid code verifier")
	ErrInvalidCodeChallenge   = errors.New("invalid code challenge")
	ErrInvalidChallengeMethod = errors.New("invalid code challenge method")
	ErrVerifierMismatch       = errors.New("code verifier does not match the code challenge")
)

// Validate verifies the code verifier presented at the token endpoint against
// the code challenge bound to the authorization code.
func Validate(codeChallenge, codeChallengeMethod, codeVerifier string) error {
	if err := ValidateCodeVerifier(codeVerifier); err != nil {
		return err
	}
	if codeChallenge == "" {
		return ErrInvalidCodeChallenge
	}

	var derived string
	switch codeChallengeMethod {
	case CodeChallengeMethodPlain:
		derived = codeVerifier
	case CodeChallengeMethodS256:
		derived = deriveS256Challenge(codeVerifier)
	default:
		return ErrInvalidChallengeMethod
	}

	if subtle.ConstantTimeCompare([]byte(codeChallenge), []byte(derived)) != 1 {
		return ErrVerifierMismatch
	}
	return nil
}

// ValidateCodeVerifier checks the code verifier format against the length and
// character set rules of RFC 7636 section 4.1.
func ValidateCodeVerifier(codeVerifier string) error {
	if len(codeVerifier) < 43 || len(codeVerifier) > 128 {
		return ErrInvalidCodeVerifier
	}
	for i := 0; i < len(codeVerifier); i++ {
		if !isUnreservedChar(codeVerifier[i]) {
			return ErrInvalidCodeVerifier
		}
	}
	return nil
}

// ValidateCodeChallenge checks the format of a code challenge received at the
// authorization endpoint for the given method.
func ValidateCodeChallenge(codeChallenge, codeChallengeMethod string) error {
	switch codeChallengeMethod {
	case CodeChallengeMethodPlain:
		// A plain challenge is the verifier itself and follows the same rules.
		if err := ValidateCodeVerifier(codeChallenge); err != nil {
			return ErrInvalidCodeChallenge
		}
		return nil
	case CodeChallengeMethodS256:
		if len(codeChallenge) != 43 {
			return ErrInvalidCodeChallenge
		}
		for i := 0; i < len(codeChallenge); i++ {
			if !isBase64URLChar(codeChallenge[i]) {
				return ErrInvalidCodeChallenge
			}
		}
		return nil
	default:
		return ErrInvalidChallengeMethod
	}
}

// GenerateCodeChallenge derives a code challenge from a code verifier using
// the given method.
func GenerateCodeChallenge(codeVerifier, method string) (string, error) {
	if err := ValidateCodeVerifier(codeVerifier); err != nil {
		return "", err
	}

	switch method {
	case CodeChallengeMethodPlain:
		return codeVerifier, nil
	case CodeChallengeMethodS256:
		return deriveS256Challenge(codeVerifier), nil
	default:
		return "", ErrInvalidChallengeMethod
	}
}

func deriveS256Challenge(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

func isUnreservedChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func isBase64URLChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_'
}
