package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/commandcenter/commandcenter/pkg/contextmgr"
	"github.com/commandcenter/commandcenter/pkg/llm"
)

const managerBackstory = "You are the CommandCenter routing manager for an off-grid solar installation. " +
	"Route each query to exactly one specialist tool, or reply directly only for meta questions about the system itself."

// Manager routes one query to a specialist before the specialist's own
// loop runs (spec.md §4.3). Two deterministic overrides (off-topic and
// the KB fast path) run before any LLM call; only queries that clear
// both reach the LLM router.
type Manager struct {
	Classifier    *contextmgr.Classifier
	Client        llm.Client
	MaxIterations int

	Status   *Specialist
	Planner  *Specialist
	Research *Specialist
}

// Route executes the manager's decision for one query, dispatching to
// a specialist (or answering directly) and returning the final text
// and the agent_role that produced it.
func (m *Manager) Route(ctx context.Context, ec *ExecutionContext) (response, agentRole string, err error) {
	if m.Classifier.IsOffTopic(ec.Query) {
		return offTopicReply(), "manager", nil
	}

	if m.Classifier.MatchesKBFastPath(ec.Query) {
		text, err := searchKBHandler(ctx, ec, map[string]any{"query": ec.Query})
		if err != nil {
			return "", "", err
		}
		ec.ToolsInvoked = append(ec.ToolsInvoked, "search_kb")
		return text, "manager", nil
	}

	return m.routeViaModel(ctx, ec)
}

func (m *Manager) routeViaModel(ctx context.Context, ec *ExecutionContext) (string, string, error) {
	tools := NewRegistry(
		Tool{Name: "route_to_status", Description: "Route to the Status Specialist for real-time/historical telemetry questions."},
		Tool{Name: "route_to_planner", Description: "Route to the Planner Specialist for planning/optimization questions."},
		Tool{Name: "route_to_research", Description: "Route to the Research Specialist for questions needing web research."},
		searchKBTool(),
	)

	maxIter := m.MaxIterations
	if maxIter <= 0 {
		maxIter = 3
	}

	system := managerBackstory + fmt.Sprintf("\n\nClassifier suggests query_type=%s (confidence %.2f); prefer the matching specialist unless the query clearly indicates otherwise.",
		ec.QueryType, ec.Bundle.Confidence)

	messages := []llm.Message{{Role: llm.RoleUser, Content: ec.Query}}

	for iter := 0; iter < maxIter; iter++ {
		ec.IterationCount++

		resp, err := m.Client.Complete(ctx, llm.CompletionRequest{
			System:    system,
			Messages:  messages,
			Tools:     tools.Defs(),
			MaxTokens: 512,
		})
		if err != nil {
			return "", "", apperr.WrapContext(apperr.KindUpstreamTransient, "manager model call failed", err)
		}

		if resp.ToolCall == nil {
			return strings.TrimSpace(resp.Text), "manager", nil
		}

		switch resp.ToolCall.Name {
		case "route_to_status":
			text, err := m.Status.Run(ctx, ec)
			return text, "status", err
		case "route_to_planner":
			text, err := m.Planner.Run(ctx, ec)
			return text, "planner", err
		case "route_to_research":
			text, err := m.Research.Run(ctx, ec)
			return text, "research", err
		case "search_kb":
			text, err := searchKBHandler(ctx, ec, resp.ToolCall.Input)
			ec.ToolsInvoked = append(ec.ToolsInvoked, "search_kb")
			return text, "manager", err
		default:
			messages = append(messages, llm.Message{Role: llm.RoleUser,
				Content: fmt.Sprintf("Observation: unknown tool %q, choose route_to_status, route_to_planner, route_to_research, or search_kb.", resp.ToolCall.Name)})
		}
	}

	return "", "", ErrMaxIterations
}

func offTopicReply() string {
	return "I'm CommandCenter, the operational assistant for this off-grid solar site. I can answer questions about battery status, energy planning, and site documentation — ask me something about the system."
}
