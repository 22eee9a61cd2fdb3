/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"

	keyring "github.com/zalando/go-keyring"
)

const (
	keyringService = "SlideCanvas"
	keyringBridge  = "bridge_token"
)

// TokenStore abstracts the OS keyring so tests can swap it out.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore replaces the keyring backend and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	old := tokenStore
	tokenStore = ts
	return old
}

// BridgeToken returns the pairing token the module builder must present.
// A missing entry yields "" and no error.
func BridgeToken() (string, error) {
	tok, err := tokenStore.Get(keyringService, keyringBridge)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// SetBridgeToken stores the pairing token.
func SetBridgeToken(tok string) error {
	return tokenStore.Set(keyringService, keyringBridge, tok)
}

// ClearBridgeToken removes the pairing token; removing a missing token is fine.
func ClearBridgeToken() error {
	err := tokenStore.Delete(keyringService, keyringBridge)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
