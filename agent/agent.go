// Package agent runs a chat turn: it assembles the prompt, calls the hosted
// model and executes the tools it asks for until the model answers.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	deltabot "github.com/phbpx/delta-agent"
	"github.com/phbpx/delta-agent/llm"
	"github.com/phbpx/delta-agent/tools"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	Greeting       = "Hello! How can I help you today?"
	Apology        = "I encountered a system error. Please try again."
	IterationLimit = "Agent stopped due to iteration limit or time limit."

	DefaultMaxIterations = 15
)

type Config struct {
	// MaxIterations caps the number of model rounds per turn.
	MaxIterations int

	// MaxHistoryTokens is the prompt budget for context plus query. Zero
	// disables trimming.
	MaxHistoryTokens int

	// Counter measures tokens for trimming. Defaults to EstimateTokens.
	Counter TokenCounter

	// Now is the clock used for the persona date.
	Now func() time.Time
}

type Agent struct {
	provider llm.Provider
	tools    *tools.Registry
	log      *otelzap.SugaredLogger
	cfg      Config
}

func New(provider llm.Provider, registry *tools.Registry, log *otelzap.SugaredLogger, cfg Config) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Counter == nil {
		cfg.Counter = EstimateTokens
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Agent{
		provider: provider,
		tools:    registry,
		log:      log,
		cfg:      cfg,
	}
}

// Run answers the conversation. Model and tool failures are logged and
// turned into Apology; only a cancelled context is returned as an error.
func (a *Agent) Run(ctx context.Context, messages []deltabot.Message) (string, error) {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "agent.run")
	defer span.End()

	history, query, ok := split(messages)
	if !ok {
		return Greeting, nil
	}
	history = trim(history, query, a.cfg.MaxHistoryTokens, a.cfg.Counter)

	span.SetAttributes(
		attribute.String("llm.provider", a.provider.Name()),
		attribute.Int("agent.history", len(history)),
	)

	req := llm.Request{
		System:   SystemPrompt(a.cfg.Now()),
		Messages: append(history, llm.Message{Role: llm.RoleUser, Content: query}),
		Tools:    a.tools.Specs(),
	}

	for i := 0; i < a.cfg.MaxIterations; i++ {
		resp, err := a.chat(ctx, req, i)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			a.log.Ctx(ctx).Errorw("Run", "error", err.Error(), "provider", a.provider.Name(), "iteration", i)
			return Apology, nil
		}

		if len(resp.ToolCalls) == 0 {
			if strings.TrimSpace(resp.Content) == "" {
				a.log.Ctx(ctx).Warnw("Run", "status", "empty model reply", "iteration", i)
				return Apology, nil
			}
			return resp.Content, nil
		}

		req.Messages = append(req.Messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			req.Messages = append(req.Messages, a.invoke(ctx, call))
		}
	}

	a.log.Ctx(ctx).Warnw("Run", "status", "iteration limit reached", "max", a.cfg.MaxIterations)
	return IterationLimit, nil
}

func (a *Agent) chat(ctx context.Context, req llm.Request, iteration int) (llm.Response, error) {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "agent.chat")
	span.SetAttributes(
		attribute.String("llm.provider", a.provider.Name()),
		attribute.Int("agent.iteration", iteration),
		attribute.Int("llm.messages", len(req.Messages)),
	)
	defer span.End()

	resp, err := a.provider.Chat(ctx, req)
	if err != nil {
		return llm.Response{}, err
	}
	span.SetAttributes(attribute.Int("llm.tool_calls", len(resp.ToolCalls)))
	return resp, nil
}

// invoke runs one tool call and returns the transcript entry holding its
// result. Failures are reported to the model as text.
func (a *Agent) invoke(ctx context.Context, call llm.ToolCall) llm.Message {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "agent.tool")
	span.SetAttributes(attribute.String("tool.name", call.Name))
	defer span.End()

	out, err := a.tools.Call(ctx, call.Name, call.Arguments)
	if err != nil {
		span.RecordError(err)
		a.log.Ctx(ctx).Errorw("invoke", "tool", call.Name, "error", err.Error())
		out = fmt.Sprintf("Error: %s", err)
	} else {
		a.log.Ctx(ctx).Infow("invoke", "tool", call.Name, "status", "ok")
	}

	return llm.Message{
		Role:       llm.RoleTool,
		Content:    out,
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}
