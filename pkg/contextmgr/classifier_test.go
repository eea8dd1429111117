package contextmgr

import (
	"testing"

	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClassifierConfig() config.ClassifierConfig {
	return config.ClassifierConfig{
		Keywords: map[config.QueryType][]config.WeightedKeyword{
			config.QueryTypeSystem: {
				{Term: "battery", Weight: 2},
				{Term: "soc", Weight: 3},
				{Term: "what is my battery", Weight: 5, Phrase: true},
			},
			config.QueryTypeResearch: {
				{Term: "compare", Weight: 2},
				{Term: "research", Weight: 3},
			},
			config.QueryTypePlanning: {
				{Term: "schedule", Weight: 2},
				{Term: "plan", Weight: 3},
			},
			config.QueryTypeGeneral: {},
		},
		Overrides: []config.OverrideRule{
			{Prefix: "what is my battery", Type: config.QueryTypeSystem},
		},
		KBFastPathPatterns: []string{"minimum soc threshold policy"},
		OffTopicKeywords:   []string{"weather", "joke"},
	}
}

func TestClassify_OverrideRuleWins(t *testing.T) {
	c := NewClassifier(testClassifierConfig())
	result := c.Classify("what is my battery level right now")
	assert.Equal(t, config.QueryTypeSystem, result.Type)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestClassify_KeywordScoring(t *testing.T) {
	c := NewClassifier(testClassifierConfig())
	result := c.Classify("please compare and research solar inverter vendors")
	assert.Equal(t, config.QueryTypeResearch, result.Type)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestClassify_NoMatchesFallsBackToGeneral(t *testing.T) {
	c := NewClassifier(testClassifierConfig())
	result := c.Classify("hello there")
	assert.Equal(t, config.QueryTypeGeneral, result.Type)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestClassify_IsDeterministic(t *testing.T) {
	c := NewClassifier(testClassifierConfig())
	a := c.Classify("schedule a battery maintenance plan")
	b := c.Classify("schedule a battery maintenance plan")
	require.Equal(t, a, b)
}

func TestIsOffTopic(t *testing.T) {
	c := NewClassifier(testClassifierConfig())
	assert.True(t, c.IsOffTopic("tell me a joke"))
	assert.False(t, c.IsOffTopic("what is my SOC"))
}

func TestMatchesKBFastPath(t *testing.T) {
	c := NewClassifier(testClassifierConfig())
	assert.True(t, c.MatchesKBFastPath("what is the minimum SOC threshold policy?"))
	assert.False(t, c.MatchesKBFastPath("what is my battery"))
}
