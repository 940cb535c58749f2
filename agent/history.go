package agent

import (
	"unicode/utf8"

	deltabot "github.com/phbpx/delta-agent"
	"github.com/phbpx/delta-agent/llm"
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter returns the number of tokens text costs in a prompt.
type TokenCounter func(text string) int

// NewTokenCounter uses the model's tiktoken encoding, falling back to
// cl100k_base and then to a character estimate when no encoding can be
// loaded.
func NewTokenCounter(model string) TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		return EstimateTokens
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}
}

// EstimateTokens approximates four characters per token.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text)/4 + 1
}

// split returns the turns before the last user message as context, and the
// last user message itself as the query. Turns after the query and roles
// other than user or assistant are dropped.
func split(messages []deltabot.Message) (history []llm.Message, query string, ok bool) {
	last := -1
	for i, m := range messages {
		if m.IsUser() {
			last = i
		}
	}
	if last < 0 {
		return nil, "", false
	}

	for _, m := range messages[:last] {
		switch {
		case m.IsUser():
			history = append(history, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case m.IsAssistant():
			history = append(history, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	return history, messages[last].Content, true
}

// trim drops the oldest context turns until history plus the query fit in
// budget tokens. A budget of zero or less disables trimming.
func trim(history []llm.Message, query string, budget int, count TokenCounter) []llm.Message {
	if budget <= 0 || count == nil {
		return history
	}

	total := count(query)
	sizes := make([]int, len(history))
	for i, m := range history {
		sizes[i] = count(m.Content)
		total += sizes[i]
	}

	start := 0
	for start < len(history) && total > budget {
		total -= sizes[start]
		start++
	}
	return history[start:]
}
