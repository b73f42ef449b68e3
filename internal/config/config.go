// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. GRIDKEEPER_VK_TOKEN.
const EnvPrefix = "GRIDKEEPER"

// Config is the top-level gridkeeper configuration.
type Config struct {
	OwnerID    int64            `mapstructure:"owner_id"`
	VK         VKConfig         `mapstructure:"vk"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Networking NetworkingConfig `mapstructure:"networking"`
	Log        LogConfig        `mapstructure:"log"`
}

// VKConfig holds the community token and API tuning.
type VKConfig struct {
	Token string `mapstructure:"token"`
	// GroupID 0 means resolve it from the token at start.
	GroupID      int64         `mapstructure:"group_id"`
	APIURL       string        `mapstructure:"api_url"`
	APIVersion   string        `mapstructure:"api_version"`
	Timeout      time.Duration `mapstructure:"timeout"`
	LongPollWait int           `mapstructure:"longpoll_wait"`
}

// StorageConfig selects the storage backend and database file.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// NetworkingConfig controls the health/status listener.
type NetworkingConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ListenAddr joins host and port.
func (n NetworkingConfig) ListenAddr() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so env overrides and
// Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("owner_id", 0)
	v.SetDefault("vk.token", "")
	v.SetDefault("vk.group_id", 0)
	v.SetDefault("vk.api_url", "https://api.vk.com/method")
	v.SetDefault("vk.api_version", "5.199")
	v.SetDefault("vk.timeout", "10s")
	v.SetDefault("vk.longpoll_wait", 25)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "bot.sqlite")
	v.SetDefault("networking.host", "0.0.0.0")
	v.SetDefault("networking.port", 10000)
	v.SetDefault("networking.cors_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// legacyEnv maps keys to the bare variable names older deployments use.
// The prefixed name always wins.
var legacyEnv = map[string][]string{
	"vk.token":        {"VK_TOKEN", "VK_API_TOKEN"},
	"owner_id":        {"OWNER_ID"},
	"storage.path":    {"DB_PATH"},
	"networking.host": {"HOST"},
	"networking.port": {"PORT"},
}

// SetupEnv enables GRIDKEEPER_ overrides plus the legacy names.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, prefixed}, names...)...)
	}
}

// FromViper decodes v into a Config without validating it.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, gkerr.Errorf(gkerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Load reads configuration from path (optional) with defaults and env
// overrides applied. The result is not validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, gkerr.Errorf(gkerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}
