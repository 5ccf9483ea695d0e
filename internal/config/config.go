package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	ServerID       string        `mapstructure:"server_id"`
	Secret         string        `mapstructure:"secret"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxRooms       int           `mapstructure:"max_rooms"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	ReadyUpGrace   time.Duration `mapstructure:"ready_up_grace"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	ContentAPIURL  string        `mapstructure:"content_api_url"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("server_id", "local")
	v.SetDefault("max_rooms", 100)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("ready_up_grace", "120s")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("content_api_url", "http://localhost:8081")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("secret must be set (credential verification key)")
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Server: %s\n", cfg.Mode, cfg.Port, cfg.ServerID)
	return &cfg, nil
}
