/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the collections-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	JWTSecret       string `mapstructure:"JWT_SECRET"`
	JWTExpiryHours  int    `mapstructure:"JWT_EXPIRY_HOURS"`
	AllowedOrigins  string `mapstructure:"ALLOWED_ORIGINS"`

	APIRateLimitPerMinute   int `mapstructure:"API_RATE_LIMIT_PER_MINUTE"`
	AuthRateLimitPerWindow  int `mapstructure:"AUTH_RATE_LIMIT_PER_WINDOW"`
	AuthRateWindowMinutes   int `mapstructure:"AUTH_RATE_WINDOW_MINUTES"`
	BulkRateLimitPerMinute  int `mapstructure:"BULK_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("API_RATE_LIMIT_PER_MINUTE", 1000)
	viper.SetDefault("AUTH_RATE_LIMIT_PER_WINDOW", 5)
	viper.SetDefault("AUTH_RATE_WINDOW_MINUTES", 15)
	viper.SetDefault("BULK_RATE_LIMIT_PER_MINUTE", 10)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_EXPIRY_HOURS")
	_ = viper.BindEnv("ALLOWED_ORIGINS")
	_ = viper.BindEnv("API_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("AUTH_RATE_LIMIT_PER_WINDOW")
	_ = viper.BindEnv("AUTH_RATE_WINDOW_MINUTES")
	_ = viper.BindEnv("BULK_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.JWTSecret = strings.TrimSpace(config.JWTSecret)

	if config.JWTExpiryHours <= 0 {
		config.JWTExpiryHours = 24
	}
	if config.APIRateLimitPerMinute <= 0 {
		config.APIRateLimitPerMinute = 1000
	}
	if config.AuthRateLimitPerWindow <= 0 {
		config.AuthRateLimitPerWindow = 5
	}
	if config.AuthRateWindowMinutes <= 0 {
		config.AuthRateWindowMinutes = 15
	}
	if config.BulkRateLimitPerMinute <= 0 {
		config.BulkRateLimitPerMinute = 10
	}

	return
}

// Origins splits the configured comma-separated origin list.
func (c Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
