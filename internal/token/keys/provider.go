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

// Package keys manages the RSA signing keys used for token issuance and the
// retired keys kept published for verification of previously issued tokens.
package keys

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
)

// SigningKey holds an RSA key pair together with its derived key identifier.
type SigningKey struct {
	KID     string
	Private *rsa.PrivateKey
}

// ProviderInterface defines the interface for signing key access.
type ProviderInterface interface {
	ActiveKey() *SigningKey
	KeyByID(kid string) (*SigningKey, bool)
	PublicKeys() []*SigningKey
	Rotate(key *SigningKey)
}

type keySet struct {
	active *SigningKey
	all    []*SigningKey
	byID   map[string]*SigningKey
}

// Provider serves the active signing key and all published verification keys.
// Reads are lock free; rotation swaps an immutable key set atomically.
type Provider struct {
	set atomic.Pointer[keySet]
}

// NewProvider creates a key provider with the given active key and retired
// keys. Retired keys remain published for verification but never sign.
func NewProvider(active *SigningKey, retired []*SigningKey) (*Provider, error) {
	if active == nil {
		return nil, errors.New("active signing key is required")
	}

	p := &Provider{}
	p.set.Store(buildKeySet(active, retired))
	return p, nil
}

// NewProviderFromFiles loads the active signing key and any retired keys from
// PEM files resolved relative to the given home directory.
func NewProviderFromFiles(home, signingKeyFile string, retiredKeyFiles []string) (*Provider, error) {
	active, err := LoadSigningKey(path.Join(home, signingKeyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	retired := make([]*SigningKey, 0, len(retiredKeyFiles))
	for _, file := range retiredKeyFiles {
		key, err := LoadSigningKey(path.Join(home, file))
		if err != nil {
			return nil, fmt.Errorf("failed to load retired key %s: %w", file, err)
		}
		retired = append(retired, key)
	}

	return NewProvider(active, retired)
}

// ActiveKey returns the key used to sign newly issued tokens.
func (p *Provider) ActiveKey() *SigningKey {
	return p.set.Load().active
}

// KeyByID returns the published key with the given key identifier.
func (p *Provider) KeyByID(kid string) (*SigningKey, bool) {
	key, ok := p.set.Load().byID[kid]
	return key, ok
}

// PublicKeys returns every published key, the active key first.
func (p *Provider) PublicKeys() []*SigningKey {
	return p.set.Load().all
}

// Rotate makes the given key the active signing key. The previous active key
// stays published so outstanding tokens keep verifying.
func (p *Provider) Rotate(key *SigningKey) {
	for {
		old := p.set.Load()
		retired := make([]*SigningKey, 0, len(old.all))
		for _, k := range old.all {
			if k.KID != key.KID {
				retired = append(retired, k)
			}
		}
		if p.set.CompareAndSwap(old, buildKeySet(key, retired)) {
			return
		}
	}
}

func buildKeySet(active *SigningKey, retired []*SigningKey) *keySet {
	all := make([]*SigningKey, 0, len(retired)+1)
	all = append(all, active)
	byID := map[string]*SigningKey{active.KID: active}
	for _, k := range retired {
		if _, ok := byID[k.KID]; ok {
			continue
		}
		all = append(all, k)
		byID[k.KID] = k
	}
	return &keySet{active: active, all: all, byID: byID}
}

// LoadSigningKey reads an RSA private key from a PEM file and derives its key
// identifier from the public key thumbprint.
func LoadSigningKey(keyFilePath string) (*SigningKey, error) {
	keyFilePath = filepath.Clean(keyFilePath)

	keyData, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing private key")
	}

	var privateKey *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		privateKey, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		var ok bool
		privateKey, ok = key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("not an RSA private key")
		}
	default:
		return nil, errors.New("unsupported private key type: " + block.Type)
	}

	return NewSigningKey(privateKey)
}

// NewSigningKey wraps an RSA private key and computes its key identifier as
// the base64url encoded SHA-256 thumbprint of the DER encoded public key.
func NewSigningKey(privateKey *rsa.PrivateKey) (*SigningKey, error) {
	der, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}
	thumbprint := sha256.Sum256(der)

	return &SigningKey{
		KID:     base64.RawURLEncoding.EncodeToString(thumbprint[:]),
		Private: privateKey,
	}, nil
}
