// Package tools holds the functions the model may call during a chat turn.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	deltabot "github.com/phbpx/delta-agent"
	"github.com/phbpx/delta-agent/llm"
)

var ErrUnknownTool = errors.New("unknown tool")

// Tool is a callable exposed to the model. Call returns the text the model
// reads back; an error means the call itself was unusable.
type Tool interface {
	Spec() llm.ToolSpec
	Call(ctx context.Context, args json.RawMessage) (string, error)
}

type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Spec().Name
		if _, ok := r.tools[name]; !ok {
			r.order = append(r.order, name)
		}
		r.tools[name] = t
	}
	return r
}

// Default returns the registry with the three sales tools.
func Default(leads deltabot.LeadService, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return NewRegistry(
		SaveLead{leads: leads, now: now},
		AvailableSlots{now: now},
		BookCall{leads: leads, now: now},
	)
}

// Specs returns the tool definitions in registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

func (r *Registry) Call(ctx context.Context, name, args string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t.Call(ctx, json.RawMessage(args))
}

func decodeArgs(raw json.RawMessage, into interface{}) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", deltabot.ErrInvalidArguments, err)
	}
	return nil
}

func required(fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", deltabot.ErrInvalidArguments, strings.Join(missing, ", "))
	}
	return nil
}
