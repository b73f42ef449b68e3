// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkeeper/gridkeeper/internal/config"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

func validConfig() *config.Config {
	return &config.Config{
		OwnerID: 1,
		VK: config.VKConfig{
			Token:        "vk1.a.token",
			APIURL:       "https://api.vk.com/method",
			APIVersion:   "5.199",
			Timeout:      10 * time.Second,
			LongPollWait: 25,
		},
		Storage:    config.StorageConfig{Backend: "sqlite", Path: "bot.sqlite"},
		Networking: config.NetworkingConfig{Host: "0.0.0.0", Port: 10000},
		Log:        config.LogConfig{Level: "info", Format: "text"},
	}
}

// clearEnv blanks variables a host shell may export; viper treats empty
// values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"VK_TOKEN", "VK_API_TOKEN", "OWNER_ID", "DB_PATH", "HOST", "PORT"} {
		t.Setenv(name, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "bot.sqlite", cfg.Storage.Path)
	assert.Equal(t, "0.0.0.0:10000", cfg.Networking.ListenAddr())
	assert.Equal(t, 10*time.Second, cfg.VK.Timeout)
	assert.Equal(t, 25, cfg.VK.LongPollWait)
	assert.Equal(t, "5.199", cfg.VK.APIVersion)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gridkeeper.yaml")
	content := `
owner_id: 123
vk:
  token: "vk1.a.file"
  group_id: 77
  timeout: 3s
networking:
  port: 8080
  cors_origins: ["https://example.org"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(123), cfg.OwnerID)
	assert.Equal(t, "vk1.a.file", cfg.VK.Token)
	assert.Equal(t, int64(77), cfg.VK.GroupID)
	assert.Equal(t, 3*time.Second, cfg.VK.Timeout)
	assert.Equal(t, 8080, cfg.Networking.Port)
	assert.Equal(t, []string{"https://example.org"}, cfg.Networking.CORSOrigins)
	assert.Empty(t, cfg.Required())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, gkerr.HasCode(err, gkerr.CodeConfigLoadReadFailure))
}

func TestLoad_PrefixedEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRIDKEEPER_NETWORKING_PORT", "9000")
	t.Setenv("GRIDKEEPER_VK_GROUP_ID", "55")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Networking.Port)
	assert.Equal(t, int64(55), cfg.VK.GroupID)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("VK_API_TOKEN", "vk1.a.legacy")
	t.Setenv("OWNER_ID", "42")
	t.Setenv("DB_PATH", "/data/bot.sqlite")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "8081")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "vk1.a.legacy", cfg.VK.Token)
	assert.Equal(t, int64(42), cfg.OwnerID)
	assert.Equal(t, "/data/bot.sqlite", cfg.Storage.Path)
	assert.Equal(t, "127.0.0.1:8081", cfg.Networking.ListenAddr())
}

func TestLoad_PrefixedEnvBeatsLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("VK_TOKEN", "legacy")
	t.Setenv("GRIDKEEPER_VK_TOKEN", "prefixed")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.VK.Token)
}

func TestFromViper_FlagStyleOverride(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("storage.path", "/tmp/other.sqlite")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.sqlite", cfg.Storage.Path)
}

func TestRequired(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantMsg string
	}{
		{name: "owner missing", mutate: func(c *config.Config) { c.OwnerID = 0 }, wantMsg: "owner_id"},
		{name: "owner negative", mutate: func(c *config.Config) { c.OwnerID = -5 }, wantMsg: "owner_id"},
		{name: "token missing", mutate: func(c *config.Config) { c.VK.Token = "  " }, wantMsg: "vk.token is required"},
		{name: "token unresolved", mutate: func(c *config.Config) { c.VK.Token = "keyring://gridkeeper/vk-token" }, wantMsg: "could not be resolved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := cfg.Required()
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tt.wantMsg)
			assert.True(t, gkerr.HasCode(errs[0], gkerr.CodeConfigValidateInvalidValue))
		})
	}

	assert.Empty(t, validConfig().Required())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantMsg string
	}{
		{name: "negative group", mutate: func(c *config.Config) { c.VK.GroupID = -1 }, wantMsg: "vk.group_id"},
		{name: "bad api url", mutate: func(c *config.Config) { c.VK.APIURL = "api.vk.com" }, wantMsg: "vk.api_url"},
		{name: "no api version", mutate: func(c *config.Config) { c.VK.APIVersion = "" }, wantMsg: "vk.api_version"},
		{name: "zero timeout", mutate: func(c *config.Config) { c.VK.Timeout = 0 }, wantMsg: "vk.timeout"},
		{name: "wait too long", mutate: func(c *config.Config) { c.VK.LongPollWait = 91 }, wantMsg: "vk.longpoll_wait"},
		{name: "backend", mutate: func(c *config.Config) { c.Storage.Backend = "postgres" }, wantMsg: "storage.backend"},
		{name: "empty path", mutate: func(c *config.Config) { c.Storage.Path = "" }, wantMsg: "storage.path"},
		{name: "port zero", mutate: func(c *config.Config) { c.Networking.Port = 0 }, wantMsg: "networking.port"},
		{name: "port high", mutate: func(c *config.Config) { c.Networking.Port = 70000 }, wantMsg: "networking.port"},
		{name: "log level", mutate: func(c *config.Config) { c.Log.Level = "trace" }, wantMsg: "log.level"},
		{name: "log format", mutate: func(c *config.Config) { c.Log.Format = "xml" }, wantMsg: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tt.wantMsg)
		})
	}

	assert.Empty(t, validConfig().Validate())
}

func TestValidate_CollectsEveryError(t *testing.T) {
	cfg := validConfig()
	cfg.VK.Timeout = 0
	cfg.Storage.Backend = ""
	cfg.Log.Format = "yaml"

	assert.Len(t, cfg.Validate(), 3)
}

func TestDefaultConfigYAMLLoads(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gridkeeper.yaml")
	require.NoError(t, os.WriteFile(path, config.DefaultConfigYAML, 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Validate())
	assert.Len(t, cfg.Required(), 2, "owner and token must be filled in")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := config.NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf, false)
	logger.Info("hidden")
	logger.Warn("shown", "chat_id", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"chat_id":3`)

	buf.Reset()
	logger = config.NewLogger(config.LogConfig{Level: "error", Format: "text"}, &buf, true)
	logger.Debug("verbose wins")
	assert.Contains(t, buf.String(), "verbose wins")
}
