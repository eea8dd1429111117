// Package config loads and validates CommandCenter's configuration:
// a YAML file merged over built-in defaults, then overridden by
// environment variables (spec.md §6).
package config

import "time"

// QueryType is the classifier's output class (spec.md §4.1).
type QueryType string

const (
	QueryTypeSystem   QueryType = "SYSTEM"
	QueryTypeResearch QueryType = "RESEARCH"
	QueryTypePlanning QueryType = "PLANNING"
	QueryTypeGeneral  QueryType = "GENERAL"
)

// Vendor identifies a telemetry poller / inverter vendor.
type Vendor string

const (
	VendorSolArk  Vendor = "solark"
	VendorVictron Vendor = "victron"
)

// Config is the fully resolved, validated configuration for a running
// CommandCenter process. Construct it with Load.
type Config struct {
	LLM        LLMConfig
	Embedding  EmbeddingConfig
	Cache      CacheConfig
	Budgets    map[QueryType]Budget
	Classifier ClassifierConfig
	KB         KBConfig
	Poll       map[Vendor]PollConfig
	RateLimit  map[Vendor]RateLimitConfig
	Query      QueryConfig
	Agent      AgentConfig
	API        APIConfig
	Database   DatabaseConfig
	Runbook    RunbookConfig
	Retention  RetentionConfig
}

// LLMConfig configures the LLM provider collaborator (pkg/llm).
type LLMConfig struct {
	APIKey string `yaml:"-"` // always sourced from LLM_API_KEY, never YAML
	Model  string `yaml:"model"`
}

// EmbeddingConfig configures the embedding provider collaborator.
type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"-"` // sourced from EMBEDDING_API_KEY
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// CacheConfig configures the optional TTL cache (spec.md §4.1, §5).
type CacheConfig struct {
	URL string        `yaml:"-"` // sourced from CACHE_URL; empty disables the cache
	TTL time.Duration `yaml:"ttl"`
}

// Budget bounds a single query class's context bundle (spec.md §4.1 table).
type Budget struct {
	TotalTokens int `yaml:"total_tokens"`
	KBDocs      int `yaml:"kb_docs"`
	ConvTurns   int `yaml:"conv_turns"`
}

// ClassifierConfig holds the weighted keyword tables and override rules
// used by pkg/contextmgr's classifier. Loaded from YAML so tuning the
// classifier never requires a rebuild (spec.md §9 Design Note).
type ClassifierConfig struct {
	Keywords  map[QueryType][]WeightedKeyword `yaml:"keywords"`
	Overrides []OverrideRule                  `yaml:"overrides"`
	// KBFastPathPatterns trigger the deterministic KB bypass (spec.md §4.3).
	KBFastPathPatterns []string `yaml:"kb_fast_path_patterns"`
	// OffTopicKeywords trigger the meta/off-topic direct-reply override.
	OffTopicKeywords []string `yaml:"off_topic_keywords"`
}

// WeightedKeyword is a single scored keyword or phrase for one class.
type WeightedKeyword struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
	Phrase bool    `yaml:"phrase"` // true if Term is a multi-word phrase
}

// OverrideRule deterministically assigns a QueryType when Prefix matches
// the start of a lower-cased, whitespace-trimmed query.
type OverrideRule struct {
	Prefix string    `yaml:"prefix"`
	Type   QueryType `yaml:"type"`
}

// KBConfig configures the knowledge base sync and chunker.
type KBConfig struct {
	RootFolderID       string  `yaml:"-"` // KB_ROOT_FOLDER_ID
	ContextFolderName  string  `yaml:"-"` // KB_CONTEXT_FOLDER_NAME
	ChunkSize          int     `yaml:"-"` // KB_CHUNK_SIZE
	ChunkOverlap       int     `yaml:"-"` // KB_CHUNK_OVERLAP
	EmbedMaxAttempts   int     `yaml:"embed_max_attempts"`
	SimilarityDefault  float64 `yaml:"similarity_threshold"`
	SearchDefaultTopK  int     `yaml:"search_default_top_k"`
}

// PollConfig configures one vendor's telemetry poller cadence.
type PollConfig struct {
	Interval time.Duration `yaml:"-"` // POLL_INTERVAL_<vendor>
}

// RateLimitConfig configures one vendor's in-process token bucket.
type RateLimitConfig struct {
	PerHour int `yaml:"-"` // RATE_LIMIT_<vendor>_PER_HOUR
}

// QueryConfig configures the per-query deadline (spec.md §5).
type QueryConfig struct {
	DeadlineSeconds int `yaml:"-"` // QUERY_DEADLINE_SECONDS
}

// AgentConfig configures orchestrator iteration caps (spec.md §4.3).
type AgentConfig struct {
	ManagerMaxIterations    int `yaml:"-"` // MANAGER_MAX_ITERATIONS
	SpecialistMaxIterations int `yaml:"-"` // SPECIALIST_MAX_ITERATIONS
	MaxConcurrentTools      int `yaml:"max_concurrent_tools"`
}

// APIConfig configures the HTTP surface collaborator.
type APIConfig struct {
	Port   string `yaml:"-"` // HTTP_PORT
	APIKey string `yaml:"-"` // API_KEY, optional
}

// RunbookConfig configures the Planner Specialist's maintenance-runbook
// fetch tool (spec.md §4.3, Planner tool roster — supplemented feature).
// TopicDefaults holds installation-specific fallback content per
// maintenance topic (e.g. "battery", "inverter", "generator"), used
// when no explicit URL is given and the configured repo has no
// matching runbook file for that topic.
type RunbookConfig struct {
	RepoURL        string            `yaml:"repo_url"`
	AllowedDomains []string          `yaml:"allowed_domains"`
	CacheTTL       time.Duration     `yaml:"cache_ttl"`
	GitHubToken    string            `yaml:"-"` // RUNBOOK_GITHUB_TOKEN, optional
	TopicDefaults  map[string]string `yaml:"topic_defaults"`
}

// RetentionConfig configures the background retention-purge job that
// ages out old telemetry samples and agent-execution records
// (supplemented beyond spec.md §6, which leaves history retention
// unbounded).
type RetentionConfig struct {
	TelemetryRetentionDays int           `yaml:"telemetry_retention_days"`
	ExecutionRetentionDays int           `yaml:"execution_retention_days"`
	Interval               time.Duration `yaml:"interval"`
}

// DatabaseConfig configures the pgx connection pool (spec.md §5).
type DatabaseConfig struct {
	Host     string `yaml:"-"`
	Port     int    `yaml:"-"`
	User     string `yaml:"-"`
	Password string `yaml:"-"`
	Database string `yaml:"-"`
	SSLMode  string `yaml:"-"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// yamlDoc is the shape of the on-disk commandcenter.yaml file: the
// subset of Config that is reasonably tunable without redeploying
// (budgets, classifier tables, KB/agent tunables). Everything else is
// environment-only, matching spec.md §6's configuration table.
type yamlDoc struct {
	LLM        llmYAML                         `yaml:"llm"`
	Embedding  embeddingYAML                   `yaml:"embedding"`
	Cache      CacheConfig                     `yaml:"cache"`
	Budgets    map[QueryType]Budget            `yaml:"budgets"`
	Classifier ClassifierConfig                `yaml:"classifier"`
	KB         kbYAML                          `yaml:"kb"`
	Agent      AgentConfig                     `yaml:"agent"`
	Runbook    runbookYAML                     `yaml:"runbook"`
	Retention  RetentionConfig                 `yaml:"retention"`
}

type runbookYAML struct {
	RepoURL        string        `yaml:"repo_url"`
	AllowedDomains []string      `yaml:"allowed_domains"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

type llmYAML struct {
	Model string `yaml:"model"`
}

type embeddingYAML struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

type kbYAML struct {
	EmbedMaxAttempts  int     `yaml:"embed_max_attempts"`
	SimilarityDefault float64 `yaml:"similarity_threshold"`
	SearchDefaultTopK int     `yaml:"search_default_top_k"`
}
