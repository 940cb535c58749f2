// Package openai adapts OpenAI-compatible chat completion APIs (OpenAI, Groq)
// to the llm.Provider interface.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/phbpx/delta-agent/llm"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	GroqBaseURL   = "https://api.groq.com/openai/v1"
)

var ErrNoChoices = errors.New("no choices returned by model")

type Config struct {
	// Name identifies the backend in logs and health output, e.g. "groq".
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

type Provider struct {
	client *goopenai.Client
	cfg    Config
}

func New(cfg Config) *Provider {
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}

	return &Provider{
		client: goopenai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

func (p *Provider) Name() string {
	return p.cfg.Name
}

func (p *Provider) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	creq := goopenai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		Messages:    toMessages(req),
		Tools:       toTools(req.Tools),
	}

	resp, err := p.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return llm.Response{}, fmt.Errorf("%s chat completion: %w", p.cfg.Name, err)
	}
	if len(resp.Choices) == 0 {
		return llm.Response{}, ErrNoChoices
	}

	return fromMessage(resp.Choices[0].Message), nil
}

func toMessages(req llm.Request) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser:
			msgs = append(msgs, goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleUser,
				Content: m.Content,
			})
		case llm.RoleAssistant:
			msg := goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
			for _, call := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
					ID:   call.ID,
					Type: goopenai.ToolTypeFunction,
					Function: goopenai.FunctionCall{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			msgs = append(msgs, msg)
		case llm.RoleTool:
			msgs = append(msgs, goopenai.ChatCompletionMessage{
				Role:       goopenai.ChatMessageRoleTool,
				Content:    m.Content,
				Name:       m.Name,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return msgs
}

func toTools(specs []llm.ToolSpec) []goopenai.Tool {
	if len(specs) == 0 {
		return nil
	}

	tools := make([]goopenai.Tool, 0, len(specs))
	for _, spec := range specs {
		params := jsonschema.Definition{
			Type:       jsonschema.Object,
			Properties: make(map[string]jsonschema.Definition, len(spec.Params)),
			Required:   spec.Required(),
		}
		for _, p := range spec.Params {
			params.Properties[p.Name] = jsonschema.Definition{
				Type:        jsonschema.String,
				Description: p.Description,
			}
		}

		tools = append(tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

func fromMessage(msg goopenai.ChatCompletionMessage) llm.Response {
	resp := llm.Response{Content: msg.Content}
	for _, call := range msg.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return resp
}
