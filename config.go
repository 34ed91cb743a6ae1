package main

import (
	"fmt"
	"os"
	"time"
)

// config is read from the environment (after .env is loaded by godotenv).
type config struct {
	DBURL            string
	Port             string
	JWTSecret        string
	TokenTTL         time.Duration
	OpenFoodFactsURL string
	RabbitMQURL      string // empty disables event publishing
	EventsQueue      string
}

// loadConfig reads and validates configuration. getenv is os.Getenv outside tests.
func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		DBURL:            getenv("DB_URL"),
		Port:             getenv("PORT"),
		JWTSecret:        getenv("JWT_SECRET"),
		OpenFoodFactsURL: getenv("OPENFOODFACTS_URL"),
		RabbitMQURL:      getenv("RABBITMQ_URL"),
		EventsQueue:      getenv("EVENTS_QUEUE"),
		TokenTTL:         24 * time.Hour,
	}
	if cfg.DBURL == "" {
		return config{}, fmt.Errorf("DB_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return config{}, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.EventsQueue == "" {
		cfg.EventsQueue = "biteright.events"
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return config{}, fmt.Errorf("invalid TOKEN_TTL %q (expected a positive duration like 24h)", v)
		}
		cfg.TokenTTL = ttl
	}
	return cfg, nil
}

// mustLoadConfig is loadConfig over the process environment; exits on error.
func mustLoadConfig() config {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
