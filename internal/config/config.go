// Package config loads the server configuration from the environment and an
// optional config file. Environment variables use the TP_FORMS prefix with
// dots replaced by underscores, e.g. TP_FORMS_SERVER_ADDR.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

var loadConfigOnce sync.Once
var configInstance AppConfig

type AppConfig struct {
	General GeneralConfig
	Server  ServerConfig
	Forms   FormsConfig
}

type GeneralConfig struct {
	LogLevel string
	// Environment selects deployment behaviour: production, staging,
	// local, or testing. Non-production environments default the
	// first-party destination to stub mode.
	Environment string
}

type ServerConfig struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitPerMinute int
}

type FormsConfig struct {
	// SigningSecret seeds the payload signer. It must stay stable for the
	// lifetime of issued tokens.
	SigningSecret string
}

// Load reads the configuration once per process.
func Load() AppConfig {
	loadConfigOnce.Do(func() {
		viper.SetEnvPrefix("tp_forms")
		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.SetConfigName("forms")
		viper.AddConfigPath("config")
		viper.AddConfigPath("/config")

		viper.SetDefault("general.log_level", "info")
		viper.SetDefault("general.environment", "production")
		viper.SetDefault("server.addr", ":8080")
		viper.SetDefault("server.rate_limit_per_minute", 20)

		if err := viper.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				panic(fmt.Errorf("fatal error config file: %w", err))
			}
		}

		configInstance = AppConfig{
			General: GeneralConfig{
				LogLevel:    viper.GetString("general.log_level"),
				Environment: strings.ToLower(viper.GetString("general.environment")),
			},
			Server: ServerConfig{
				Addr:               viper.GetString("server.addr"),
				AllowedOrigins:     viper.GetStringSlice("server.allowed_origins"),
				RateLimitPerMinute: viper.GetInt("server.rate_limit_per_minute"),
			},
			Forms: FormsConfig{
				SigningSecret: viper.GetString("forms.signing_secret"),
			},
		}
	})

	return configInstance
}

// StubDestinations reports whether the first-party destination should
// default to stub mode for this environment.
func (c AppConfig) StubDestinations() bool {
	switch c.General.Environment {
	case "local", "testing":
		return true
	default:
		return false
	}
}
