// Package config loads cmd binary configuration from the environment.
package config

import (
	"fmt"
	"os"
)

type Config struct {
	TwitchClientID     string
	TwitchClientSecret string
	HelixBaseURL       string
	OAuthTokenURL      string
	AccessToken        string
	RefreshToken       string
	ActorID            string
	RedisURL           string
	TokenEncryptionKey string
	LogLevel           string
	LogFormat          string
}

func Load() (*Config, error) {
	cfg := &Config{
		TwitchClientID:     getEnv("TWITCH_CLIENT_ID", ""),
		TwitchClientSecret: getEnv("TWITCH_CLIENT_SECRET", ""),
		HelixBaseURL:       getEnv("HELIX_BASE_URL", ""),
		OAuthTokenURL:      getEnv("OAUTH_TOKEN_URL", ""),
		AccessToken:        getEnv("TWITCH_ACCESS_TOKEN", ""),
		RefreshToken:       getEnv("TWITCH_REFRESH_TOKEN", ""),
		ActorID:            getEnv("TWITCH_ACTOR_ID", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	if cfg.TwitchClientID == "" {
		return nil, fmt.Errorf("TWITCH_CLIENT_ID is required")
	}
	if cfg.AccessToken == "" && cfg.TwitchClientSecret == "" {
		return nil, fmt.Errorf("TWITCH_ACCESS_TOKEN or TWITCH_CLIENT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
