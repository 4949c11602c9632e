/**
 * @description
 * Configuration management for the ledger-service. Viper binds environment
 * variables (with an optional .env file) into an explicit Config value that
 * is constructed once at startup and passed to the components that need it.
 * Missing secrets are a startup error, never a runtime one.
 *
 * @dependencies
 * - github.com/spf13/viper: Environment/file configuration binding.
 */
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	ExternalJWTSecret    string `mapstructure:"JWT_SECRET"`
	InternalJWTSecret    string `mapstructure:"JWT_INTERNAL_KEY"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	TxRateLimitPerMinute int    `mapstructure:"TX_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given
// path. It validates that every required value is present.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "3001")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ledger:rate_limit")
	viper.SetDefault("TX_RATE_LIMIT_PER_MINUTE", 60)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_INTERNAL_KEY")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("TX_RATE_LIMIT_PER_MINUTE")

	if err = viper.ReadInConfig(); err != nil {
		// The .env file is optional; only real read errors matter.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(config.DatabaseURL) == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if strings.TrimSpace(config.ExternalJWTSecret) == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if strings.TrimSpace(config.InternalJWTSecret) == "" {
		return Config{}, errors.New("JWT_INTERNAL_KEY is required")
	}

	return config, nil
}
