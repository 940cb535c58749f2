package agent_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	deltabot "github.com/phbpx/delta-agent"
	"github.com/phbpx/delta-agent/agent"
	"github.com/phbpx/delta-agent/llm"
	"github.com/phbpx/delta-agent/memory"
	"github.com/phbpx/delta-agent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// scriptedProvider replays responses in order and records every request.
type scriptedProvider struct {
	responses []llm.Response
	err       error
	requests  []llm.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	req.Messages = append([]llm.Message(nil), req.Messages...)
	p.requests = append(p.requests, req)

	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	if p.err != nil {
		return llm.Response{}, p.err
	}
	if len(p.responses) == 0 {
		return llm.Response{}, errors.New("script exhausted")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
}

func newAgent(p llm.Provider, cfg agent.Config) *agent.Agent {
	log := otelzap.New(zap.NewNop()).Sugar()
	cfg.Now = fixedNow
	return agent.New(p, tools.Default(memory.NewLeadService(log), fixedNow), log, cfg)
}

func user(content string) deltabot.Message {
	return deltabot.Message{Role: deltabot.RoleUser, Content: content}
}

func assistant(content string) deltabot.Message {
	return deltabot.Message{Role: deltabot.RoleAssistant, Content: content}
}

func TestRunDirectAnswer(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{{Content: "We build growth engines."}}}
	a := newAgent(p, agent.Config{})

	reply, err := a.Run(context.Background(), []deltabot.Message{user("Hey, what do you guys do?")})
	require.NoError(t, err)
	assert.Equal(t, "We build growth engines.", reply)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Contains(t, req.System, "You are Delta-1")
	assert.Contains(t, req.System, "Current Date: Monday, October 19, 2026")
	assert.Len(t, req.Tools, 3)
	assert.Equal(t, []llm.Message{{Role: llm.RoleUser, Content: "Hey, what do you guys do?"}}, req.Messages)
}

func TestRunHistory(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{{Content: "Great."}}}
	a := newAgent(p, agent.Config{})

	_, err := a.Run(context.Background(), []deltabot.Message{
		assistant("Hi! I'm Delta-1."),
		user("What do you do?"),
		{Role: "system", Content: "ignored"},
		{Role: "ASSISTANT", Content: "Growth engines."},
		{Role: "User", Content: "Sounds good"},
		assistant("trailing turn"),
	})
	require.NoError(t, err)

	require.Len(t, p.requests, 1)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleAssistant, Content: "Hi! I'm Delta-1."},
		{Role: llm.RoleUser, Content: "What do you do?"},
		{Role: llm.RoleAssistant, Content: "Growth engines."},
		{Role: llm.RoleUser, Content: "Sounds good"},
	}, p.requests[0].Messages)
}

func TestRunGreetingWithoutUserMessage(t *testing.T) {
	p := &scriptedProvider{}
	a := newAgent(p, agent.Config{})

	reply, err := a.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, agent.Greeting, reply)

	reply, err = a.Run(context.Background(), []deltabot.Message{assistant("Hi!")})
	require.NoError(t, err)
	assert.Equal(t, agent.Greeting, reply)
	assert.Empty(t, p.requests)
}

func TestRunToolLoop(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{
			{ID: "c1", Name: "save_lead_tool", Arguments: `{"name":"Ada","email":"ada@example.com"}`},
			{ID: "c2", Name: "get_available_slots_tool", Arguments: `{}`},
		}},
		{Content: "Saved! I have 2026-10-20 at 10:00 AM free."},
	}}
	a := newAgent(p, agent.Config{})

	reply, err := a.Run(context.Background(), []deltabot.Message{user("I'm Ada, ada@example.com. When can we talk?")})
	require.NoError(t, err)
	assert.Equal(t, "Saved! I have 2026-10-20 at 10:00 AM free.", reply)

	require.Len(t, p.requests, 2)
	msgs := p.requests[1].Messages
	require.Len(t, msgs, 4)

	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
	assert.Len(t, msgs[1].ToolCalls, 2)

	assert.Equal(t, llm.RoleTool, msgs[2].Role)
	assert.Equal(t, "c1", msgs[2].ToolCallID)
	assert.Equal(t, "save_lead_tool", msgs[2].Name)
	assert.True(t, strings.HasPrefix(msgs[2].Content, "Successfully saved lead for Ada. ID: "))

	assert.Equal(t, "c2", msgs[3].ToolCallID)
	assert.True(t, strings.HasPrefix(msgs[3].Content, "Available slots:\n2026-10-20 at 10:00 AM"))
}

func TestRunToolErrorsReachModel(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{
			{ID: "c1", Name: "save_lead_tool", Arguments: `{"name":`},
			{ID: "c2", Name: "launch_rocket", Arguments: `{}`},
		}},
		{Content: "Could you share your email?"},
	}}
	a := newAgent(p, agent.Config{})

	reply, err := a.Run(context.Background(), []deltabot.Message{user("I'm Ada")})
	require.NoError(t, err)
	assert.Equal(t, "Could you share your email?", reply)

	msgs := p.requests[1].Messages
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[2].Content, "Error: invalid tool arguments")
	assert.Contains(t, msgs[3].Content, "Error: unknown tool: launch_rocket")
}

func TestRunIterationLimit(t *testing.T) {
	call := llm.Response{ToolCalls: []llm.ToolCall{{ID: "c", Name: "get_available_slots_tool"}}}
	p := &scriptedProvider{responses: []llm.Response{call, call, call, call}}
	a := newAgent(p, agent.Config{MaxIterations: 3})

	reply, err := a.Run(context.Background(), []deltabot.Message{user("slots?")})
	require.NoError(t, err)
	assert.Equal(t, agent.IterationLimit, reply)
	assert.Len(t, p.requests, 3)
}

func TestRunProviderError(t *testing.T) {
	p := &scriptedProvider{err: errors.New("model timeout")}
	a := newAgent(p, agent.Config{})

	reply, err := a.Run(context.Background(), []deltabot.Message{user("hello")})
	require.NoError(t, err)
	assert.Equal(t, agent.Apology, reply)
}

func TestRunEmptyReply(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{{Content: "  "}}}
	a := newAgent(p, agent.Config{})

	reply, err := a.Run(context.Background(), []deltabot.Message{user("hello")})
	require.NoError(t, err)
	assert.Equal(t, agent.Apology, reply)
}

func TestRunCancelledContext(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{{Content: "never"}}}
	a := newAgent(p, agent.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx, []deltabot.Message{user("hello")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunTrimsHistory(t *testing.T) {
	p := &scriptedProvider{responses: []llm.Response{{Content: "ok"}}}
	words := func(s string) int { return len(strings.Fields(s)) }
	a := newAgent(p, agent.Config{MaxHistoryTokens: 5, Counter: words})

	_, err := a.Run(context.Background(), []deltabot.Message{
		user("one two three"),
		assistant("four five"),
		user("six"),
		user("seven eight"),
	})
	require.NoError(t, err)

	assert.Equal(t, []llm.Message{
		{Role: llm.RoleAssistant, Content: "four five"},
		{Role: llm.RoleUser, Content: "six"},
		{Role: llm.RoleUser, Content: "seven eight"},
	}, p.requests[0].Messages)
}

func TestSystemPrompt(t *testing.T) {
	prompt := agent.SystemPrompt(time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, prompt, "Current Date: Friday, January 02, 2026")
	assert.Contains(t, prompt, "save_lead_tool")
	assert.Contains(t, prompt, "get_available_slots_tool")
	assert.Contains(t, prompt, "book_call_tool")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, agent.EstimateTokens(""))
	assert.Equal(t, 3, agent.EstimateTokens("12345678"))
}
