// Package config provides configuration helpers for maskstream commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for the streaming server.
const (
	DefaultPort        = "8080"
	DefaultCascadePath = "models/haarcascade_frontalface_alt.xml"
	DefaultTargetFPS   = 30
	DefaultJPEGQuality = 80
)

// Port returns the listen port from the PORT env var.
func Port() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return DefaultPort
}

// CascadePath returns the Haar cascade file path from CASCADE_PATH.
func CascadePath() string {
	if path := os.Getenv("CASCADE_PATH"); path != "" {
		return path
	}
	return DefaultCascadePath
}

// TargetFPS returns the target frame rate from TARGET_FPS.
// Falls back to the default on missing or unparseable values.
func TargetFPS() int {
	return intEnv("TARGET_FPS", DefaultTargetFPS)
}

// JPEGQuality returns the outbound JPEG quality from JPEG_QUALITY.
func JPEGQuality() int {
	return intEnv("JPEG_QUALITY", DefaultJPEGQuality)
}

// LogLevel returns the log level from LOG_LEVEL ("info" if unset).
func LogLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
