package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads commandcenter.yaml from configDir (if present), merges it
// over the built-in defaults, applies environment variable overrides
// per spec.md §6's configuration table, and validates the result.
//
// A missing YAML file is not an error — the built-in defaults plus
// environment variables are a complete configuration on their own.
func Load(configDir string) (*Config, error) {
	cfg := builtinDefaults()

	yamlPath := filepath.Join(configDir, "commandcenter.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		expanded := expandEnv(data)
		var doc yamlDoc
		if err := yaml.Unmarshal(expanded, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", yamlPath, err)
		}
		if err := mergeYAML(cfg, &doc); err != nil {
			return nil, fmt.Errorf("merging %s: %w", yamlPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", yamlPath, err)
	}

	applyEnv(cfg)

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays the environment-only fields of spec.md §6's
// configuration table. These are never read from YAML: credentials and
// deployment topology do not belong in a checked-in config file.
func applyEnv(cfg *Config) {
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.Embedding.APIKey = os.Getenv("EMBEDDING_API_KEY")
	if m := os.Getenv("EMBEDDING_MODEL"); m != "" {
		cfg.Embedding.Model = m
	}
	cfg.Cache.URL = os.Getenv("CACHE_URL")
	if v := envInt("CACHE_TTL_SECONDS"); v > 0 {
		cfg.Cache.TTL = time.Duration(v) * time.Second
	}

	for qt := range cfg.Budgets {
		b := cfg.Budgets[qt]
		if v := envInt("TOKEN_BUDGET_" + string(qt)); v > 0 {
			b.TotalTokens = v
		}
		cfg.Budgets[qt] = b
	}

	cfg.KB.RootFolderID = os.Getenv("KB_ROOT_FOLDER_ID")
	if v := os.Getenv("KB_CONTEXT_FOLDER_NAME"); v != "" {
		cfg.KB.ContextFolderName = v
	}
	if v := envInt("KB_CHUNK_SIZE"); v > 0 {
		cfg.KB.ChunkSize = v
	}
	if v := envInt("KB_CHUNK_OVERLAP"); v > 0 {
		cfg.KB.ChunkOverlap = v
	}

	for vendor := range cfg.Poll {
		p := cfg.Poll[vendor]
		if v := envInt("POLL_INTERVAL_" + string(vendor)); v > 0 {
			p.Interval = time.Duration(v) * time.Second
		}
		cfg.Poll[vendor] = p
	}
	for vendor := range cfg.RateLimit {
		rl := cfg.RateLimit[vendor]
		if v := envInt("RATE_LIMIT_" + string(vendor) + "_PER_HOUR"); v > 0 {
			rl.PerHour = v
		}
		cfg.RateLimit[vendor] = rl
	}

	if v := envInt("QUERY_DEADLINE_SECONDS"); v > 0 {
		cfg.Query.DeadlineSeconds = v
	}
	if v := envInt("MANAGER_MAX_ITERATIONS"); v > 0 {
		cfg.Agent.ManagerMaxIterations = v
	}
	if v := envInt("SPECIALIST_MAX_ITERATIONS"); v > 0 {
		cfg.Agent.SpecialistMaxIterations = v
	}

	if v := os.Getenv("HTTP_PORT"); v != "" {
		cfg.API.Port = v
	}
	cfg.API.APIKey = os.Getenv("API_KEY")

	cfg.Database.Host = envOr("DB_HOST", cfg.Database.Host)
	if v := envInt("DB_PORT"); v > 0 {
		cfg.Database.Port = v
	}
	cfg.Database.User = envOr("DB_USER", cfg.Database.User)
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	cfg.Database.Database = envOr("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = envOr("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Runbook.GitHubToken = os.Getenv("RUNBOOK_GITHUB_TOKEN")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
