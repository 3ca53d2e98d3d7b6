package main

import (
	"fmt"
	"strings"

	"questboard/internal/middleware"
	"questboard/internal/repository"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database  repository.Config          `yaml:"database"`
	Server    ServerConfig               `yaml:"server"`
	Redis     RedisConfig                `yaml:"redis"`
	RateLimit middleware.RateLimitConfig `yaml:"rateLimit"`

	TelegramAuth TelegramAuthConfig `yaml:"telegramAuth"`
	Payments     PaymentsConfig     `yaml:"payments"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Catalog      CatalogConfig      `yaml:"catalog"`

	// Admins may record purchases and reconcile balances.
	Admins []int64 `yaml:"admins"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `yaml:"telegramBotToken"`
	DebugMode        bool   `yaml:"debugMode"`
}

type PaymentsConfig struct {
	Enabled     bool  `yaml:"enabled"`
	GoldPerStar int64 `yaml:"goldPerStar"`
}

type LedgerConfig struct {
	PlatformAccountID int64 `yaml:"platformAccountID"`
}

type CatalogConfig struct {
	Categories []string `yaml:"categories"`
}

func LoadConfig() (*Config, error) {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8888")
	viper.SetDefault("database.driver", repository.DriverPostgres)
	viper.SetDefault("database.migrate", true)
	viper.SetDefault("rateLimit.requests", 60)
	viper.SetDefault("rateLimit.windowSeconds", 60)
	viper.SetDefault("payments.goldPerStar", 1)
	viper.SetDefault("logLevel", "info")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
