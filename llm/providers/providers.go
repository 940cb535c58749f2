// Package providers picks and builds the hosted model client from the
// configured credentials.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phbpx/delta-agent/llm"
	"github.com/phbpx/delta-agent/llm/gemini"
	"github.com/phbpx/delta-agent/llm/openai"
)

const (
	Gemini = "gemini"
	Groq   = "groq"
	OpenAI = "openai"
)

var (
	ErrMissingCredential = errors.New("no LLM provider credential configured")
	ErrUnknownProvider   = errors.New("unknown LLM provider")
)

var defaultModels = map[string]string{
	Gemini: gemini.DefaultModel,
	Groq:   "llama-3.3-70b-versatile",
	OpenAI: "gpt-4o-mini",
}

type Config struct {
	// Provider forces a backend. When empty the first backend with a
	// credential wins, in the order gemini, groq, openai.
	Provider    string
	Model       string
	Temperature float32

	GoogleAPIKey  string
	GroqAPIKey    string
	GroqBaseURL   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func (cfg Config) key(name string) string {
	switch name {
	case Gemini:
		return cfg.GoogleAPIKey
	case Groq:
		return cfg.GroqAPIKey
	case OpenAI:
		return cfg.OpenAIAPIKey
	}
	return ""
}

// envFallbacks lists the unprefixed variables read when a key is not set
// under the service prefix, in lookup order.
var envFallbacks = map[string][]string{
	Gemini: {"GOOGLE_GENERATIVE_AI_API_KEY", "GOOGLE_API_KEY"},
	Groq:   {"GROQ_API_KEY"},
	OpenAI: {"OPENAI_API_KEY"},
}

// WithEnvFallbacks fills empty API keys from the conventional unprefixed
// variables, e.g. GOOGLE_GENERATIVE_AI_API_KEY. Keys already set are kept.
func (cfg Config) WithEnvFallbacks(getenv func(string) string) Config {
	fill := func(dst *string, name string) {
		for _, env := range envFallbacks[name] {
			if *dst != "" {
				return
			}
			*dst = strings.TrimSpace(getenv(env))
		}
	}

	fill(&cfg.GoogleAPIKey, Gemini)
	fill(&cfg.GroqAPIKey, Groq)
	fill(&cfg.OpenAIAPIKey, OpenAI)
	return cfg
}

// Select returns the backend that New will build.
func Select(cfg Config) (string, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name != "" {
		if _, ok := defaultModels[name]; !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
		}
		if cfg.key(name) == "" {
			return "", fmt.Errorf("%w: %s selected without an API key", ErrMissingCredential, name)
		}
		return name, nil
	}

	for _, name := range []string{Gemini, Groq, OpenAI} {
		if cfg.key(name) != "" {
			return name, nil
		}
	}
	return "", ErrMissingCredential
}

// Model returns the configured model, or the default for the backend.
func Model(cfg Config, name string) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return defaultModels[name]
}

func New(ctx context.Context, cfg Config) (llm.Provider, error) {
	name, err := Select(cfg)
	if err != nil {
		return nil, err
	}

	switch name {
	case Gemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:      cfg.GoogleAPIKey,
			Model:       Model(cfg, name),
			Temperature: cfg.Temperature,
		})
	case Groq:
		baseURL := cfg.GroqBaseURL
		if baseURL == "" {
			baseURL = openai.GroqBaseURL
		}
		return openai.New(openai.Config{
			Name:        Groq,
			APIKey:      cfg.GroqAPIKey,
			BaseURL:     baseURL,
			Model:       Model(cfg, name),
			Temperature: cfg.Temperature,
		}), nil
	default:
		return openai.New(openai.Config{
			Name:        OpenAI,
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       Model(cfg, name),
			Temperature: cfg.Temperature,
		}), nil
	}
}
