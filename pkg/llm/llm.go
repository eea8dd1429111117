// Package llm provides the LLM-provider collaborator named out of scope
// in spec.md §1, used by pkg/agent to drive the manager and
// specialist agents' reasoning. The interface is narrow by design: one
// call that takes a system prompt, conversation so far, and a tool
// roster, and returns either free text or exactly one tool call,
// matching spec.md §4.3's "manager emits exactly one tool call or a
// direct textual reply" contract.
package llm

import "context"

// Role is a message role in a chat-style completion request.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the conversation passed to the model.
type Message struct {
	Role    Role
	Content string
}

// ToolDef describes one callable tool to the model, mirroring the
// typed tool registry of pkg/agent (spec.md §9 Design Note).
type ToolDef struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	Name  string
	Input map[string]any
}

// CompletionRequest is one call to the model.
type CompletionRequest struct {
	System    string
	Messages  []Message
	Tools     []ToolDef
	MaxTokens int
}

// CompletionResponse is the model's reply: free text, at most one tool
// call, or both (callers check ToolCall != nil first).
type CompletionResponse struct {
	Text         string
	ToolCall     *ToolCall
	InputTokens  int
	OutputTokens int
}

// Client is the narrow interface pkg/agent depends on.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
