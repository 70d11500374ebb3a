// Package config holds ambient, environment-driven server settings. It
// deliberately does NOT hold the spec's own timing constants (penalty
// duration, arbitration window, grace periods, ...) — those are
// compile-time values in internal/room, per spec.md §9's "process-wide
// configuration is only the set of timing constants, which are
// compile-time values."
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the Hub's ambient, operator-tunable configuration.
type Config struct {
	Port              int
	LogLevel          string
	MaxRooms          int
	RoomSweepInterval time.Duration
	CORSOrigin        string
}

// Default returns the configuration built from environment variables,
// falling back to sane defaults for local development.
func Default() *Config {
	return &Config{
		Port:              envInt("PORT", 8080),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		MaxRooms:          envInt("MAX_ROOMS", 500),
		RoomSweepInterval: time.Duration(envInt("ROOM_SWEEP_SECONDS", 60)) * time.Second,
		CORSOrigin:        envStr("CORS_ORIGIN", "*"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
