// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package config

import (
	"strings"

	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

var (
	validBackends  = map[string]bool{"sqlite": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats   = map[string]bool{"text": true, "json": true}
)

// Validate checks the shape of every value and collects all problems.
// Owner and token presence are checked by Required.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.validateVK()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateLog()...)
	return errs
}

// Required reports the values the bot cannot start without.
func (c *Config) Required() []error {
	var errs []error
	if c.OwnerID <= 0 {
		errs = append(errs, invalid("config: owner_id must be a positive VK user id, got %d", c.OwnerID))
	}
	switch token := strings.TrimSpace(c.VK.Token); {
	case token == "":
		errs = append(errs, invalid("config: vk.token is required"))
	case strings.HasPrefix(token, "keyring://"):
		errs = append(errs, invalid("config: vk.token references %s which could not be resolved", token))
	}
	return errs
}

func (c *Config) validateVK() []error {
	var errs []error
	if c.VK.GroupID < 0 {
		errs = append(errs, invalid("config: vk.group_id must not be negative, got %d", c.VK.GroupID))
	}
	if c.VK.APIURL == "" {
		errs = append(errs, invalid("config: vk.api_url must not be empty"))
	} else if !strings.HasPrefix(c.VK.APIURL, "http://") && !strings.HasPrefix(c.VK.APIURL, "https://") {
		errs = append(errs, invalid("config: vk.api_url must be an http(s) URL, got %q", c.VK.APIURL))
	}
	if c.VK.APIVersion == "" {
		errs = append(errs, invalid("config: vk.api_version must not be empty"))
	}
	if c.VK.Timeout <= 0 {
		errs = append(errs, invalid("config: vk.timeout must be greater than 0, got %s", c.VK.Timeout))
	}
	if c.VK.LongPollWait < 1 || c.VK.LongPollWait > 90 {
		errs = append(errs, invalid("config: vk.longpoll_wait must be between 1 and 90, got %d", c.VK.LongPollWait))
	}
	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, invalid("config: storage.backend must be one of [sqlite], got %q", c.Storage.Backend))
	}
	if c.Storage.Path == "" {
		errs = append(errs, invalid("config: storage.path must not be empty"))
	}
	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error
	if c.Networking.Port < 1 || c.Networking.Port > 65535 {
		errs = append(errs, invalid("config: networking.port must be between 1 and 65535, got %d", c.Networking.Port))
	}
	return errs
}

func (c *Config) validateLog() []error {
	var errs []error
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, invalid("config: log.level must be one of [debug, info, warn, error], got %q", c.Log.Level))
	}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, invalid("config: log.format must be one of [text, json], got %q", c.Log.Format))
	}
	return errs
}

func invalid(format string, args ...any) error {
	return gkerr.Errorf(gkerr.CodeConfigValidateInvalidValue, format, args...)
}
