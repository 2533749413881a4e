// Package config loads the gallery service configuration.
//
// Sources are applied in this order:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CONFIG_FILE env, ./config.yaml)
//  3. .env file, loaded into the process environment
//  4. Environment variable overrides
//  5. Normalization and validation
package config

import "time"

// Config holds all configuration for the gallery service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Weaviate WeaviateConfig `yaml:"weaviate"`
	Search   SearchConfig   `yaml:"search"`
	Sessions SessionConfig  `yaml:"sessions"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	Debug    bool           `yaml:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `yaml:"port"`            // default: "8080"
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // default: 30s
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // default: 60s
	AllowedOrigins []string      `yaml:"allowed_origins"` // default: ["*"]
}

// WeaviateConfig describes the external vector database.
type WeaviateConfig struct {
	Scheme            string            `yaml:"scheme"`  // default: "https"
	Host              string            `yaml:"host"`    // default: "localhost:8080"
	APIKey            string            `yaml:"api_key"` // optional, empty means anonymous
	Headers           map[string]string `yaml:"headers"`
	ClassName         string            `yaml:"class_name"` // default: "DiffusionPrompt"
	Properties        []string          `yaml:"properties"`
	TextTargetVector  string            `yaml:"text_target_vector"`  // default: "prompt"
	ImageTargetVector string            `yaml:"image_target_vector"` // default: "image"
	Timeout           time.Duration     `yaml:"timeout"`             // default: 30s
}

// SearchConfig holds paging and request guard settings.
type SearchConfig struct {
	PageSize      int     `yaml:"page_size"`       // default: 12
	MaxImageBytes int64   `yaml:"max_image_bytes"` // default: 10 MiB
	RateLimit     float64 `yaml:"rate_limit"`      // requests per second, 0 disables
	Burst         int     `yaml:"burst"`
}

// SessionConfig bounds the in-memory session registry.
type SessionConfig struct {
	MaxSessions int    `yaml:"max_sessions"` // default: 1024
	CookieName  string `yaml:"cookie_name"`  // default: "session_id"
}

// StorageConfig holds the optional search log database.
type StorageConfig struct {
	DatabaseURL string `yaml:"database_url"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "text"
}

// DefaultProperties are the DiffusionPrompt properties requested on every query.
var DefaultProperties = []string{"prompt", "image", "height", "width", "sourceSite", "url"}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Weaviate: WeaviateConfig{
			Scheme:            "https",
			Host:              "localhost:8080",
			ClassName:         "DiffusionPrompt",
			Properties:        append([]string(nil), DefaultProperties...),
			TextTargetVector:  "prompt",
			ImageTargetVector: "image",
			Timeout:           30 * time.Second,
		},
		Search: SearchConfig{
			PageSize:      12,
			MaxImageBytes: 10 << 20,
			RateLimit:     10,
			Burst:         20,
		},
		Sessions: SessionConfig{
			MaxSessions: 1024,
			CookieName:  "session_id",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
