package config

import "dario.cat/mergo"

// mergeYAML merges a parsed YAML document over the built-in defaults.
// Non-zero fields in doc win; zero-value fields fall back to base.
// mergo.WithOverride makes this explicit since mergo's zero-value
// default is "fill only empty destination fields".
func mergeYAML(base *Config, doc *yamlDoc) error {
	if doc.LLM.Model != "" {
		base.LLM.Model = doc.LLM.Model
	}

	overlay := EmbeddingConfig{
		BaseURL:   doc.Embedding.BaseURL,
		Model:     doc.Embedding.Model,
		Dimension: doc.Embedding.Dimension,
	}
	if err := mergo.Merge(&base.Embedding, overlay, mergo.WithOverride); err != nil {
		return err
	}

	if doc.Cache.TTL > 0 {
		base.Cache.TTL = doc.Cache.TTL
	}

	for qt, b := range doc.Budgets {
		base.Budgets[qt] = b
	}

	if len(doc.Classifier.Keywords) > 0 || len(doc.Classifier.Overrides) > 0 ||
		len(doc.Classifier.KBFastPathPatterns) > 0 || len(doc.Classifier.OffTopicKeywords) > 0 {
		base.Classifier = doc.Classifier
	}

	if doc.KB.EmbedMaxAttempts > 0 {
		base.KB.EmbedMaxAttempts = doc.KB.EmbedMaxAttempts
	}
	if doc.KB.SimilarityDefault > 0 {
		base.KB.SimilarityDefault = doc.KB.SimilarityDefault
	}
	if doc.KB.SearchDefaultTopK > 0 {
		base.KB.SearchDefaultTopK = doc.KB.SearchDefaultTopK
	}

	if doc.Agent.MaxConcurrentTools > 0 {
		base.Agent.MaxConcurrentTools = doc.Agent.MaxConcurrentTools
	}

	if doc.Runbook.RepoURL != "" {
		base.Runbook.RepoURL = doc.Runbook.RepoURL
	}
	if len(doc.Runbook.AllowedDomains) > 0 {
		base.Runbook.AllowedDomains = doc.Runbook.AllowedDomains
	}
	if doc.Runbook.CacheTTL > 0 {
		base.Runbook.CacheTTL = doc.Runbook.CacheTTL
	}
	for topic, content := range doc.Runbook.TopicDefaults {
		if base.Runbook.TopicDefaults == nil {
			base.Runbook.TopicDefaults = map[string]string{}
		}
		base.Runbook.TopicDefaults[topic] = content
	}

	if doc.Retention.TelemetryRetentionDays > 0 {
		base.Retention.TelemetryRetentionDays = doc.Retention.TelemetryRetentionDays
	}
	if doc.Retention.ExecutionRetentionDays > 0 {
		base.Retention.ExecutionRetentionDays = doc.Retention.ExecutionRetentionDays
	}
	if doc.Retention.Interval > 0 {
		base.Retention.Interval = doc.Retention.Interval
	}

	return nil
}
