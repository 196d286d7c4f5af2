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

package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateSigningKey(t *testing.T) *SigningKey {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key, err := NewSigningKey(privateKey)
	require.NoError(t, err)
	return key
}

func writeKeyPEM(t *testing.T, dir, name string, key *SigningKey, pemType string) string {
	t.Helper()

	var der []byte
	var err error
	switch pemType {
	case "RSA PRIVATE KEY":
		der = x509.MarshalPKCS1PrivateKey(key.Private)
	case "PRIVATE KEY":
		der, err = x509.MarshalPKCS8PrivateKey(key.Private)
		require.NoError(t, err)
	}

	pemData := pem.EncodeToMemory(&pem.Block{Type: pemType, Bytes: der})
	err = os.WriteFile(filepath.Join(dir, name), pemData, 0o600)
	require.NoError(t, err)
	return name
}

func TestNewProvider(t *testing.T) {
	active := generateSigningKey(t)
	retired := generateSigningKey(t)

	provider, err := NewProvider(active, []*SigningKey{retired})
	require.NoError(t, err)

	assert.Equal(t, active.KID, provider.ActiveKey().KID)

	published := provider.PublicKeys()
	assert.Len(t, published, 2)
	assert.Equal(t, active.KID, published[0].KID)

	key, ok := provider.KeyByID(retired.KID)
	assert.True(t, ok)
	assert.Equal(t, retired.KID, key.KID)

	_, ok = provider.KeyByID("unknown-kid")
	assert.False(t, ok)
}

func TestNewProviderRequiresActiveKey(t *testing.T) {
	_, err := NewProvider(nil, nil)
	assert.Error(t, err)
}

func TestRotateKeepsOldKeyPublished(t *testing.T) {
	first := generateSigningKey(t)
	second := generateSigningKey(t)

	provider, err := NewProvider(first, nil)
	require.NoError(t, err)

	provider.Rotate(second)

	assert.Equal(t, second.KID, provider.ActiveKey().KID)

	// The previous key stays published so outstanding tokens keep verifying.
	_, ok := provider.KeyByID(first.KID)
	assert.True(t, ok)
	assert.Len(t, provider.PublicKeys(), 2)
}

func TestNewProviderFromFiles(t *testing.T) {
	dir := t.TempDir()

	active := generateSigningKey(t)
	retired := generateSigningKey(t)
	activeFile := writeKeyPEM(t, dir, "signing.key", active, "PRIVATE KEY")
	retiredFile := writeKeyPEM(t, dir, "retired.key", retired, "RSA PRIVATE KEY")

	provider, err := NewProviderFromFiles(dir, activeFile, []string{retiredFile})
	require.NoError(t, err)

	assert.Equal(t, active.KID, provider.ActiveKey().KID)
	assert.Len(t, provider.PublicKeys(), 2)
}

func TestNewProviderFromFilesMissingKey(t *testing.T) {
	_, err := NewProviderFromFiles(t.TempDir(), "missing.key", nil)
	assert.Error(t, err)
}

func TestLoadSigningKeyRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "garbage.key")
	require.NoError(t, os.WriteFile(file, []byte("not a pem file"), 0o600))

	_, err := LoadSigningKey(file)
	assert.Error(t, err)
}

func TestKeyIdentifierIsStable(t *testing.T) {
	key := generateSigningKey(t)

	// The identifier is derived from the public key, so re-wrapping the same
	// private key yields the same kid.
	again, err := NewSigningKey(key.Private)
	require.NoError(t, err)
	assert.Equal(t, key.KID, again.KID)
	assert.NotEmpty(t, key.KID)
}
