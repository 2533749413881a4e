package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, an optional YAML file, optional
// .env files and the environment. envFiles that do not exist are skipped.
func Load(configPath string, envFiles ...string) (*Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, errors.Wrapf(err, "loading config file %s", path)
		}
	}

	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(f); err != nil {
			return nil, errors.Wrapf(err, "loading env file %s", f)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation")
	}
	return &cfg, nil
}

func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("CONFIG_FILE"); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// firstEnv returns the value of the first variable in names that is set and
// non-empty.
func firstEnv(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func applyEnvOverrides(cfg *Config) error {
	if v, ok := firstEnv("PORT"); ok {
		cfg.Server.Port = v
	}
	if v, ok := firstEnv("ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	// The REACT_APP_ names are what the browser build used; keep them working.
	if v, ok := firstEnv("WEAVIATE_SCHEME", "REACT_APP_WEAVIATE_SCHEME"); ok {
		cfg.Weaviate.Scheme = v
	}
	if v, ok := firstEnv("WEAVIATE_HOST", "REACT_APP_WEAVIATE_HOST"); ok {
		cfg.Weaviate.Host = v
	}
	if v, ok := firstEnv("WEAVIATE_API_KEY", "REACT_APP_WEAVIATE_API_KEY"); ok {
		cfg.Weaviate.APIKey = v
	}
	if v, ok := firstEnv("WEAVIATE_CLASS"); ok {
		cfg.Weaviate.ClassName = v
	}
	if v, ok := firstEnv("WEAVIATE_PROPERTIES"); ok {
		cfg.Weaviate.Properties = splitList(v)
	}

	if v, ok := firstEnv("SEARCH_PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "SEARCH_PAGE_SIZE")
		}
		cfg.Search.PageSize = n
	}
	if v, ok := firstEnv("SEARCH_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "SEARCH_RATE_LIMIT")
		}
		cfg.Search.RateLimit = f
	}

	if v, ok := firstEnv("DATABASE_URL"); ok {
		cfg.Storage.DatabaseURL = v
	}
	if v, ok := firstEnv("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := firstEnv("LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
	if v, ok := firstEnv("GALLERY_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "GALLERY_DEBUG")
		}
		cfg.Debug = b
	}
	return nil
}

func normalize(cfg *Config) {
	cfg.Weaviate.Scheme = strings.ToLower(strings.TrimSpace(cfg.Weaviate.Scheme))
	// Accept a full URL in the host field, e.g. https://demo.weaviate.network
	if i := strings.Index(cfg.Weaviate.Host, "://"); i >= 0 {
		cfg.Weaviate.Scheme = strings.ToLower(cfg.Weaviate.Host[:i])
		cfg.Weaviate.Host = cfg.Weaviate.Host[i+3:]
	}
	cfg.Weaviate.Host = strings.TrimRight(cfg.Weaviate.Host, "/")

	// Fix for SQLAlchemy scheme
	if strings.HasPrefix(cfg.Storage.DatabaseURL, "postgresql+psycopg:") {
		cfg.Storage.DatabaseURL = "postgres:" + strings.TrimPrefix(cfg.Storage.DatabaseURL, "postgresql+psycopg:")
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
