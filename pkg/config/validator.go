package config

import "fmt"

// Validator validates a loaded Config comprehensively, failing fast with
// a message that names the offending field.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll validates in dependency order: database → budgets → KB →
// agent → query, mirroring the order components are constructed in
// cmd/commandcenter/main.go.
func (v *Validator) ValidateAll() error {
	if err := v.validateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := v.validateBudgets(); err != nil {
		return fmt.Errorf("budget validation failed: %w", err)
	}
	if err := v.validateKB(); err != nil {
		return fmt.Errorf("kb validation failed: %w", err)
	}
	if err := v.validateAgent(); err != nil {
		return fmt.Errorf("agent validation failed: %w", err)
	}
	if err := v.validateQuery(); err != nil {
		return fmt.Errorf("query validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateDatabase() error {
	d := v.cfg.Database
	if d.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("max_open_conns must be positive, got %d", d.MaxOpenConns)
	}
	if d.MaxIdleConns < 0 || d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("max_idle_conns (%d) must be between 0 and max_open_conns (%d)", d.MaxIdleConns, d.MaxOpenConns)
	}
	return nil
}

// validateBudgets enforces spec.md §4.1's invariant that the shell
// reserve (200 tokens) always fits within every class's total budget.
const shellReserveTokens = 200

func (v *Validator) validateBudgets() error {
	for qt, b := range v.cfg.Budgets {
		if b.TotalTokens <= shellReserveTokens {
			return fmt.Errorf("budget %s: total_tokens (%d) must exceed the shell reserve (%d)", qt, b.TotalTokens, shellReserveTokens)
		}
		if b.KBDocs < 0 || b.ConvTurns < 0 {
			return fmt.Errorf("budget %s: kb_docs and conv_turns must be non-negative", qt)
		}
	}
	for _, qt := range []QueryType{QueryTypeSystem, QueryTypeResearch, QueryTypePlanning, QueryTypeGeneral} {
		if _, ok := v.cfg.Budgets[qt]; !ok {
			return fmt.Errorf("missing budget for query type %s", qt)
		}
	}
	return nil
}

func (v *Validator) validateKB() error {
	k := v.cfg.KB
	if k.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", k.ChunkSize)
	}
	if k.ChunkOverlap < 0 || k.ChunkOverlap >= k.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be non-negative and less than chunk_size (%d)", k.ChunkOverlap, k.ChunkSize)
	}
	if k.EmbedMaxAttempts <= 0 {
		return fmt.Errorf("embed_max_attempts must be positive, got %d", k.EmbedMaxAttempts)
	}
	if k.SimilarityDefault < 0 || k.SimilarityDefault > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %f", k.SimilarityDefault)
	}
	return nil
}

func (v *Validator) validateAgent() error {
	a := v.cfg.Agent
	if a.ManagerMaxIterations <= 0 {
		return fmt.Errorf("manager_max_iterations must be positive, got %d", a.ManagerMaxIterations)
	}
	if a.SpecialistMaxIterations <= 0 {
		return fmt.Errorf("specialist_max_iterations must be positive, got %d", a.SpecialistMaxIterations)
	}
	if a.MaxConcurrentTools <= 0 {
		return fmt.Errorf("max_concurrent_tools must be positive, got %d", a.MaxConcurrentTools)
	}
	return nil
}

func (v *Validator) validateQuery() error {
	if v.cfg.Query.DeadlineSeconds <= 0 {
		return fmt.Errorf("query deadline must be positive, got %d", v.cfg.Query.DeadlineSeconds)
	}
	return nil
}
