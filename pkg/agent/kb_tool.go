package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/commandcenter/commandcenter/pkg/apperr"
)

// searchKBTool is the search_kb tool shared by every agent (spec.md
// §4.3: Manager's KB fast path and every specialist's tool list).
func searchKBTool() Tool {
	return Tool{
		Name:        "search_kb",
		Description: "Search the knowledge base for passages relevant to a query.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"top_k": map[string]any{"type": "number"},
			},
			"required": []string{"query"},
		},
		Handler: searchKBHandler,
	}
}

func searchKBHandler(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error) {
	if ec.KB == nil {
		return "", apperr.New(apperr.KindInternal, "knowledge base unavailable")
	}
	query, _ := input["query"].(string)
	if query == "" {
		return "", apperr.New(apperr.KindInvalidInput, "query is required")
	}
	topK := intArg(input, "top_k", 5)

	results, err := ec.KB.Search(ctx, query, topK, 0)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No relevant knowledge base passages found.", nil
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%s] %s (similarity %.2f)\n%s\n\n", i+1, r.Folder, r.DocumentTitle, r.Similarity, r.ChunkText)
	}
	return strings.TrimSpace(b.String()), nil
}
