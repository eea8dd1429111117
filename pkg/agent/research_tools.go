package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/commandcenter/commandcenter/pkg/apperr"
)

// researchTools returns the Research Specialist's tool registry
// (spec.md §4.3: web_search, web_extract, search_kb).
func researchTools() []Tool {
	return []Tool{
		{
			Name:        "web_search",
			Description: "Search the web for up-to-date information outside the local knowledge base.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
					"top_k": map[string]any{"type": "number"},
				},
				"required": []string{"query"},
			},
			Handler: webSearchHandler,
		},
		{
			Name:        "web_extract",
			Description: "Fetch and return the plain-text content of a URL found via web_search.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{"type": "string"},
				},
				"required": []string{"url"},
			},
			Handler: webExtractHandler,
		},
		searchKBTool(),
	}
}

func webSearchHandler(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error) {
	if ec.WebSearch == nil {
		return "", apperr.New(apperr.KindInternal, "web search unavailable")
	}
	query, _ := input["query"].(string)
	if query == "" {
		return "", apperr.New(apperr.KindInvalidInput, "query is required")
	}
	topK := intArg(input, "top_k", 5)

	results, err := ec.WebSearch.Search(ctx, query, topK)
	if err != nil {
		return "", apperr.WrapContext(apperr.KindUpstreamTransient, "web search", err)
	}
	if len(results) == 0 {
		return "No web search results found.", nil
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s — %s\n%s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return strings.TrimSpace(b.String()), nil
}

func webExtractHandler(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error) {
	if ec.WebSearch == nil {
		return "", apperr.New(apperr.KindInternal, "web search unavailable")
	}
	url, _ := input["url"].(string)
	if url == "" {
		return "", apperr.New(apperr.KindInvalidInput, "url is required")
	}
	text, err := ec.WebSearch.Extract(ctx, url)
	if err != nil {
		return "", apperr.WrapContext(apperr.KindUpstreamTransient, "web extract", err)
	}
	return text, nil
}
