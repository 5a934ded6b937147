package config

import (
	"os"
	"strconv"
	"time"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port           int
	MaxUploadMB    int
	RequestTimeout time.Duration // read/write timeout on the HTTP server

	// Storage
	UploadDir string // M1..M5 live here
	OutputDir string // exports and the last-mix mirror

	// Mixing
	HeadroomDB     float64 // limiter ceiling below full scale
	AmbienceGainDB float64 // bed level when a request does not set one
	DefaultBitrate string  // mp3/opus export bitrate, e.g. "192k"
	MaxTimelineMs  int     // bound on request placements and crossfades

	// Tools
	FFmpegPath string

	// Logging
	LogLevel  string // zerolog level name
	LogFormat string // json or console
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port:           envInt("CONFLUENCE_PORT", 5000),
		MaxUploadMB:    envInt("CONFLUENCE_MAX_UPLOAD_MB", 200),
		RequestTimeout: time.Duration(envInt("CONFLUENCE_REQUEST_TIMEOUT", 300)) * time.Second,

		UploadDir: envStr("CONFLUENCE_UPLOAD_DIR", "uploads"),
		OutputDir: envStr("CONFLUENCE_OUTPUT_DIR", "outputs"),

		HeadroomDB:     envFloat("CONFLUENCE_HEADROOM_DB", 1.0),
		AmbienceGainDB: envFloat("CONFLUENCE_AMBIENCE_GAIN_DB", -24),
		DefaultBitrate: envStr("CONFLUENCE_BITRATE", "192k"),
		MaxTimelineMs:  envInt("CONFLUENCE_MAX_TIMELINE_MS", 20*60*1000),

		FFmpegPath: envStr("CONFLUENCE_FFMPEG", "ffmpeg"),

		LogLevel:  envStr("CONFLUENCE_LOG_LEVEL", "info"),
		LogFormat: envStr("CONFLUENCE_LOG_FORMAT", "json"),
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
