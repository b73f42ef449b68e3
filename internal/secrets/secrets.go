// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

// Package secrets keeps credentials such as the VK community token out of
// config files. Config values of the form keyring://service/key are
// resolved against a Store after load.
package secrets

// DefaultService is the keyring service gridkeeper stores its secrets under.
const DefaultService = "gridkeeper"

// TokenKey is the key of the VK community token within DefaultService.
const TokenKey = "vk-token"

// Store provides secret storage operations.
type Store interface {
	// Store saves value under service/key, replacing any previous value.
	Store(service, key, value string) error
	// Retrieve returns the value for service/key, or an error coded
	// secret.entry.not_found.
	Retrieve(service, key string) (string, error)
	Delete(service, key string) error
	// List returns the key names stored under service, sorted.
	List(service string) ([]string, error)
}

// TokenURI is the keyring reference written into config files for the
// VK token.
func TokenURI() string {
	return keyringScheme + DefaultService + "/" + TokenKey
}
