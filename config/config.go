// Package config loads server configuration from a yaml file and the
// environment.
package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort      string `mapstructure:"APP_PORT"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	Env          string `mapstructure:"ENV"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`

	// CORS origins allowed to call the API, comma-separated.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	// Background shift generation.
	AutoGenerate            bool `mapstructure:"AUTO_GENERATE"`
	GenerateIntervalMinutes int  `mapstructure:"GENERATE_INTERVAL_MINUTES"`
}

var AppConfig Config

// LoadConfig reads config.yaml (current dir or ./config) and the
// environment, with environment taking precedence.
func LoadConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "roster.db")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")
	viper.SetDefault("AUTO_GENERATE", true)
	viper.SetDefault("GENERATE_INTERVAL_MINUTES", 60)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
