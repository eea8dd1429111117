package agent

import (
	"context"
	"fmt"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/commandcenter/commandcenter/pkg/llm"
)

// Specialist runs one agent's iteration loop: call the model, and
// either return its final text or execute the tool call it requested
// and feed the observation back, up to maxIterations (spec.md §4.3
// "Specialist iteration limit is 5"). Adapted from the teacher's
// ReActController loop shape, but using the llm package's native
// ToolCall rather than text-parsed actions — tool results are still
// fed back as plain observation messages, matching the ReAct
// "assistant proposes, environment observes" shape.
type Specialist struct {
	Role         string
	Backstory    string
	Tools        *Registry
	Client       llm.Client
	MaxIterations int
}

// ErrMaxIterations is returned when a specialist exhausts its
// iteration budget without producing a final answer (spec.md §4.3
// terminal state "max_iterations").
var ErrMaxIterations = apperr.New(apperr.KindInternal, "max iterations reached without a final answer")

// Run executes the specialist's loop for one query and returns its
// final textual answer verbatim (spec.md §4.3 "Verbatim pass-through"
// — the caller must not rewrite this text).
func (s *Specialist) Run(ctx context.Context, ec *ExecutionContext) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: buildSpecialistPrompt(s.Backstory, ec)},
	}

	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = 5
	}

	for iter := 0; iter < maxIter; iter++ {
		ec.IterationCount++

		resp, err := s.Client.Complete(ctx, llm.CompletionRequest{
			System:    s.Backstory,
			Messages:  messages,
			Tools:     s.Tools.Defs(),
			MaxTokens: 1024,
		})
		if err != nil {
			return "", apperr.WrapContext(apperr.KindUpstreamTransient, fmt.Sprintf("%s model call failed", s.Role), err)
		}

		if resp.ToolCall == nil {
			ec.PartialOutputs = append(ec.PartialOutputs, resp.Text)
			return resp.Text, nil
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: fmt.Sprintf("calling tool %s", resp.ToolCall.Name)})

		result, toolErr := s.Tools.Invoke(ctx, ec, resp.ToolCall.Name, resp.ToolCall.Input)
		observation := result
		if toolErr != nil {
			observation = fmt.Sprintf("Tool %s failed: %v", resp.ToolCall.Name, toolErr)
		}
		ec.PartialOutputs = append(ec.PartialOutputs, observation)
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: "Observation: " + observation})
	}

	return "", ErrMaxIterations
}

func buildSpecialistPrompt(backstory string, ec *ExecutionContext) string {
	return fmt.Sprintf("%s\n\nContext:\n%s\n\nUser query: %s", backstory, formatBundleForPrompt(ec), ec.Query)
}
