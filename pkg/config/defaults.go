package config

import "time"

// builtinDefaults returns the built-in configuration (spec.md §4.1's
// budget table, baseline classifier keywords, chunker defaults). The
// loaded YAML document is merged over this with dario.cat/mergo, and
// env vars are applied last.
func builtinDefaults() *Config {
	return &Config{
		LLM: LLMConfig{
			Model: "claude-sonnet-4-5",
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		Cache: CacheConfig{
			TTL: 300 * time.Second,
		},
		Budgets: map[QueryType]Budget{
			QueryTypeSystem:   {TotalTokens: 2000, KBDocs: 2, ConvTurns: 3},
			QueryTypeResearch: {TotalTokens: 4000, KBDocs: 5, ConvTurns: 4},
			QueryTypePlanning: {TotalTokens: 3500, KBDocs: 4, ConvTurns: 4},
			QueryTypeGeneral:  {TotalTokens: 1000, KBDocs: 0, ConvTurns: 2},
		},
		Classifier: builtinClassifier(),
		KB: KBConfig{
			RootFolderID:      "",
			ContextFolderName: "context",
			ChunkSize:         500,
			ChunkOverlap:      50,
			EmbedMaxAttempts:  3,
			SimilarityDefault: 0.3,
			SearchDefaultTopK: 5,
		},
		Poll: map[Vendor]PollConfig{
			VendorSolArk:  {Interval: 60 * time.Second},
			VendorVictron: {Interval: 300 * time.Second},
		},
		RateLimit: map[Vendor]RateLimitConfig{
			VendorSolArk:  {PerHour: 120},
			VendorVictron: {PerHour: 60},
		},
		Query: QueryConfig{
			DeadlineSeconds: 60,
		},
		Agent: AgentConfig{
			ManagerMaxIterations:    3,
			SpecialistMaxIterations: 5,
			MaxConcurrentTools:      4,
		},
		API: APIConfig{
			Port: "8080",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "commandcenter",
			Database:        "commandcenter",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Runbook: RunbookConfig{
			CacheTTL: time.Minute,
			TopicDefaults: map[string]string{
				"battery":   "No battery runbook configured for this installation. Check SOC, charge-controller settings, and cell balance manually.",
				"inverter":  "No inverter runbook configured for this installation. Check the inverter's fault-code display and consult vendor documentation.",
				"generator": "No generator runbook configured for this installation. Verify fuel level, oil level, and automatic transfer switch status.",
			},
		},
		Retention: RetentionConfig{
			TelemetryRetentionDays: 365,
			ExecutionRetentionDays: 90,
			Interval:               24 * time.Hour,
		},
	}
}

// builtinClassifier returns the baseline weighted keyword tables and
// override rules for the classifier (spec.md §4.1). These are data, not
// code, per spec.md §9's explicit Design Note, and may be overridden
// wholesale by the YAML file's classifier section.
func builtinClassifier() ClassifierConfig {
	return ClassifierConfig{
		Keywords: map[QueryType][]WeightedKeyword{
			QueryTypeSystem: {
				{Term: "battery level", Weight: 5, Phrase: true},
				{Term: "soc", Weight: 4},
				{Term: "current", Weight: 2},
				{Term: "now", Weight: 2},
				{Term: "today", Weight: 2},
				{Term: "status", Weight: 3},
				{Term: "voltage", Weight: 3},
				{Term: "power", Weight: 2},
				{Term: "online", Weight: 2},
				{Term: "charging", Weight: 3},
			},
			QueryTypePlanning: {
				{Term: "plan", Weight: 4},
				{Term: "schedule", Weight: 3},
				{Term: "optimi", Weight: 3}, // matches optimize/optimise/optimization
				{Term: "tomorrow", Weight: 3},
				{Term: "next week", Weight: 4, Phrase: true},
				{Term: "miner", Weight: 3},
				{Term: "forecast", Weight: 3},
				{Term: "strategy", Weight: 2},
			},
			QueryTypeResearch: {
				{Term: "best practice", Weight: 4, Phrase: true},
				{Term: "compare", Weight: 3},
				{Term: "research", Weight: 4},
				{Term: "why", Weight: 2},
				{Term: "explain", Weight: 2},
				{Term: "latest", Weight: 3},
				{Term: "lifepo4", Weight: 3},
				{Term: "manufacturer", Weight: 2},
			},
			QueryTypeGeneral: {
				{Term: "hello", Weight: 2},
				{Term: "thanks", Weight: 2},
				{Term: "who are you", Weight: 3, Phrase: true},
			},
		},
		Overrides: []OverrideRule{
			{Prefix: "what is my battery", Type: QueryTypeSystem},
			{Prefix: "what is the current", Type: QueryTypeSystem},
			{Prefix: "how much power", Type: QueryTypeSystem},
			{Prefix: "plan ", Type: QueryTypePlanning},
		},
		KBFastPathPatterns: []string{
			"specification", "threshold", "policy", "how do i", "procedure",
		},
		OffTopicKeywords: []string{
			"who are you", "what are you", "your name", "tell me a joke",
			"what can you do",
		},
	}
}
