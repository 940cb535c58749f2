// Package llm defines the provider-neutral transcript and tool types used to
// talk to hosted language models. Adapters live in the sub-packages.
package llm

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model's request to run a local function. Arguments holds the
// raw JSON object produced by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry in the transcript sent to a provider.
//
// Assistant messages may carry ToolCalls; tool messages carry the result of
// one call in Content and reference it through ToolCallID and Name.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// Param describes one argument of a tool. Only string parameters are used by
// the bot's tools.
type Param struct {
	Name        string
	Description string
	Required    bool
}

type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
}

// Required returns the names of the required parameters, in order.
func (s ToolSpec) Required() []string {
	var names []string
	for _, p := range s.Params {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

type Request struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
}

type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Provider is a hosted chat model able to request tool calls.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req Request) (Response, error)
}
