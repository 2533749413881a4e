package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port == "" {
		errs = append(errs, "server.port is required")
	}
	if c.Weaviate.Scheme != "http" && c.Weaviate.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("weaviate.scheme must be http or https, got %q", c.Weaviate.Scheme))
	}
	if c.Weaviate.Host == "" {
		errs = append(errs, "weaviate.host is required")
	}
	if c.Weaviate.ClassName == "" {
		errs = append(errs, "weaviate.class_name is required")
	}
	if len(c.Weaviate.Properties) == 0 {
		errs = append(errs, "weaviate.properties must not be empty")
	}
	if c.Search.PageSize <= 0 {
		errs = append(errs, fmt.Sprintf("search.page_size must be positive, got %d", c.Search.PageSize))
	}
	if c.Search.MaxImageBytes <= 0 {
		errs = append(errs, "search.max_image_bytes must be positive")
	}
	if c.Search.RateLimit < 0 {
		errs = append(errs, "search.rate_limit must not be negative")
	}
	if c.Sessions.MaxSessions <= 0 {
		errs = append(errs, "sessions.max_sessions must be positive")
	}
	if c.Sessions.CookieName == "" {
		errs = append(errs, "sessions.cookie_name is required")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
