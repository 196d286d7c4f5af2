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

// Package hash provides credential hashing utilities for sensitive data.
package hash

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a valid bcrypt hash of a random value. Comparisons against it
// keep credential verification constant time when the record does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashCredential returns a bcrypt hash of the given credential.
func HashCredential(credential string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyCredential compares the credential against the stored bcrypt hash.
func VerifyCredential(storedHash, credential string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(credential)) == nil
}

// VerifyDummy runs a bcrypt comparison against a fixed hash and always fails.
// Callers invoke it when no credential record exists so that the unknown
// identifier path takes the same time as a failed comparison.
func VerifyDummy(credential string) bool {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(credential))
	return false
}
