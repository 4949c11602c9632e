/**
 * @description
 * Configuration management for the identity-service. Mirrors the
 * ledger-service config: Viper binds environment variables into an explicit
 * Config value constructed once at startup. Missing secrets or a missing
 * peer-service URL are startup errors.
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

// Config holds all the configuration variables for the identity-service.
type Config struct {
	ServerPort        string `mapstructure:"SERVER_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	ExternalJWTSecret string `mapstructure:"JWT_SECRET"`
	InternalJWTSecret string `mapstructure:"JWT_INTERNAL_KEY"`
	WalletServiceURL  string `mapstructure:"WALLET_SERVICE_URL"`
	RabbitMQURL       string `mapstructure:"RABBITMQ_URL"`
}

// LoadConfig reads configuration from environment variables from the given
// path. It validates that every required value is present.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "3002")

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_INTERNAL_KEY")
	_ = viper.BindEnv("WALLET_SERVICE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")

	if err = viper.ReadInConfig(); err != nil {
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
	if strings.TrimSpace(config.WalletServiceURL) == "" {
		return Config{}, errors.New("WALLET_SERVICE_URL is required")
	}

	return config, nil
}
