// Package contextmgr assembles the per-query ContextBundle (spec.md
// §4.1): classification, budget-bound section assembly, formatting,
// and the cache-key fingerprint that makes bundling idempotent within
// a TTL window.
package contextmgr

import (
	"math"
	"regexp"
	"strings"

	"github.com/commandcenter/commandcenter/pkg/config"
)

// classOrder breaks ties deterministically: SYSTEM, PLANNING, RESEARCH,
// GENERAL (spec.md §4.1 classification algorithm).
var classOrder = []config.QueryType{
	config.QueryTypeSystem,
	config.QueryTypePlanning,
	config.QueryTypeResearch,
	config.QueryTypeGeneral,
}

var tokenPattern = regexp.MustCompile(`[^\W_]+`)

// Classifier scores a query against each QueryType's weighted keyword
// set and applies override rules (spec.md §4.1 classification
// algorithm).
type Classifier struct {
	cfg config.ClassifierConfig
}

// NewClassifier constructs a Classifier from config.
func NewClassifier(cfg config.ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classification is the result of classify(query).
type Classification struct {
	Type       config.QueryType
	Confidence float64
}

// Classify scores query against every class's keyword set, applies
// override rules first, and returns the winning type with a
// confidence in [0, 1]. A query with no keyword matches at all falls
// back to GENERAL with confidence 0.
func (c *Classifier) Classify(query string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(query))

	for _, rule := range c.cfg.Overrides {
		if strings.HasPrefix(normalized, strings.ToLower(rule.Prefix)) {
			return Classification{Type: rule.Type, Confidence: 1.0}
		}
	}

	tokens := tokenPattern.FindAllString(normalized, -1)
	scores := make(map[config.QueryType]float64, len(classOrder))
	for _, t := range classOrder {
		scores[t] = scoreClass(normalized, tokens, c.cfg.Keywords[t])
	}

	denom := math.Sqrt(float64(len(tokens)))
	if denom == 0 {
		denom = 1
	}
	for t := range scores {
		scores[t] /= denom
	}

	best, second := rankTop2(scores)
	if scores[best] == 0 {
		return Classification{Type: config.QueryTypeGeneral, Confidence: 0}
	}

	const epsilon = 1e-6
	confidence := scores[best] / (scores[best] + scores[second] + epsilon)
	return Classification{Type: best, Confidence: confidence}
}

// scoreClass sums the weight of every keyword match; phrase matches
// (multi-word terms) are checked against the normalized string,
// single-token matches against the tokenized query.
func scoreClass(normalized string, tokens []string, keywords []config.WeightedKeyword) float64 {
	var score float64
	tokenSet := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tokenSet[t]++
	}

	for _, kw := range keywords {
		if kw.Phrase {
			if strings.Contains(normalized, strings.ToLower(kw.Term)) {
				score += kw.Weight
			}
			continue
		}
		if n := tokenSet[strings.ToLower(kw.Term)]; n > 0 {
			score += kw.Weight * float64(n)
		}
	}
	return score
}

// rankTop2 returns the highest and second-highest scoring types,
// breaking ties using classOrder's fixed priority.
func rankTop2(scores map[config.QueryType]float64) (best, second config.QueryType) {
	best, second = classOrder[0], classOrder[0]
	for _, t := range classOrder {
		if scores[t] > scores[best] {
			second = best
			best = t
		} else if scores[t] > scores[second] && t != best {
			second = t
		}
	}
	return best, second
}

// IsOffTopic reports whether query matches the configured off-topic
// keyword list, used by pkg/agent's Manager for its meta/off-topic routing
// override (spec.md §9 Design Note).
func (c *Classifier) IsOffTopic(query string) bool {
	normalized := strings.ToLower(query)
	for _, kw := range c.cfg.OffTopicKeywords {
		if strings.Contains(normalized, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// MatchesKBFastPath reports whether query matches one of the
// configured KB fast-path patterns (spec.md §9.3 "kb fast path bypass
// the LLM router entirely").
func (c *Classifier) MatchesKBFastPath(query string) bool {
	normalized := strings.ToLower(query)
	for _, pattern := range c.cfg.KBFastPathPatterns {
		if strings.Contains(normalized, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
