// Package gemini adapts Google's Gemini models to the llm.Provider interface.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/phbpx/delta-agent/llm"
	"google.golang.org/api/option"
)

const (
	DefaultModel = "gemini-1.5-flash"

	roleUser  = "user"
	roleModel = "model"
)

var (
	ErrNoCandidates = errors.New("no candidates returned by model")
	ErrNoUserTurn   = errors.New("transcript must end with a user or tool turn")
)

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

type Provider struct {
	client *genai.Client
	cfg    Config
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &Provider{client: client, cfg: cfg}, nil
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) Close() error {
	return p.client.Close()
}

func (p *Provider) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	model := p.client.GenerativeModel(p.cfg.Model)
	model.SetTemperature(p.cfg.Temperature)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	model.Tools = toTools(req.Tools)

	history, last, err := splitTurns(req.Messages)
	if err != nil {
		return llm.Response{}, err
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return llm.Response{}, fmt.Errorf("gemini send message: %w", err)
	}
	return fromResponse(resp)
}

// toContents converts the transcript into Gemini contents. Tool results are
// sent back as user-role function responses, consecutive turns of the same
// role are merged and leading model turns are dropped, since Gemini expects
// the history to open with the user.
func toContents(msgs []llm.Message) []*genai.Content {
	var contents []*genai.Content

	add := func(role string, parts ...genai.Part) {
		if len(parts) == 0 {
			return
		}
		if len(contents) == 0 && role == roleModel {
			return
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			return
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	for _, m := range msgs {
		switch m.Role {
		case llm.RoleUser:
			add(roleUser, genai.Text(m.Content))
		case llm.RoleAssistant:
			var parts []genai.Part
			if strings.TrimSpace(m.Content) != "" {
				parts = append(parts, genai.Text(m.Content))
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, genai.FunctionCall{
					Name: call.Name,
					Args: decodeArgs(call.Arguments),
				})
			}
			add(roleModel, parts...)
		case llm.RoleTool:
			add(roleUser, genai.FunctionResponse{
				Name:     m.Name,
				Response: map[string]any{"result": m.Content},
			})
		}
	}
	return contents
}

// splitTurns converts msgs and separates the turn to send from the chat
// history before it. The turn to send must come from the user side.
func splitTurns(msgs []llm.Message) ([]*genai.Content, *genai.Content, error) {
	contents := toContents(msgs)
	if len(contents) == 0 {
		return nil, nil, ErrNoUserTurn
	}

	last := contents[len(contents)-1]
	if last.Role != roleUser {
		return nil, nil, ErrNoUserTurn
	}
	return contents[:len(contents)-1], last, nil
}

func toTools(specs []llm.ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		decl := &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
		}
		if len(spec.Params) > 0 {
			schema := &genai.Schema{
				Type:       genai.TypeObject,
				Properties: make(map[string]*genai.Schema, len(spec.Params)),
				Required:   spec.Required(),
			}
			for _, p := range spec.Params {
				schema.Properties[p.Name] = &genai.Schema{
					Type:        genai.TypeString,
					Description: p.Description,
				}
			}
			decl.Parameters = schema
		}
		decls = append(decls, decl)
	}

	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func fromResponse(resp *genai.GenerateContentResponse) (llm.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return llm.Response{}, ErrNoCandidates
	}

	var (
		out llm.Response
		sb  strings.Builder
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			sb.WriteString(string(v))
		case genai.FunctionCall:
			if v.Args == nil {
				v.Args = map[string]any{}
			}
			args, err := json.Marshal(v.Args)
			if err != nil {
				return llm.Response{}, fmt.Errorf("encoding %s arguments: %w", v.Name, err)
			}
			// Gemini does not identify calls; give each one an id so tool
			// results can be matched in the transcript.
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        uuid.NewString(),
				Name:      v.Name,
				Arguments: string(args),
			})
		}
	}
	out.Content = sb.String()
	return out, nil
}

func decodeArgs(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}
