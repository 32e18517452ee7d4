// Package llm provides text-generation backends and the prompt
// templates used for SQL generation, intent classification, and answer
// synthesis.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Generator is a text-in/text-out generation backend. A call either
// returns the raw model output or an error; no retries happen here.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)

	// Name returns the provider name for logging/debugging.
	Name() string
}

// Options shapes sampling for one generation call. Zero values mean
// "provider default" except Temperature, which is always sent.
type Options struct {
	Temperature   float64
	MaxTokens     int
	TopK          int
	TopP          float64
	RepeatPenalty float64
}

// SQLOptions returns the deterministic sampling preset for SQL
// generation. Small instruction-tuned models need tighter sampling to
// stay on a single statement.
func SQLOptions(style PromptStyle) Options {
	if style == StylePhi3 {
		return Options{Temperature: 0, MaxTokens: 500, TopK: 5, TopP: 0.7, RepeatPenalty: 1.0}
	}
	return Options{Temperature: 0, MaxTokens: 500}
}

// ClassifyOptions returns the preset for intent classification: a
// handful of tokens is enough for one keyword.
func ClassifyOptions() Options {
	return Options{Temperature: 0, MaxTokens: 6, TopK: 3, TopP: 0.5, RepeatPenalty: 1.0}
}

// SynthesisOptions returns the preset for free-form answer synthesis.
func SynthesisOptions() Options {
	return Options{Temperature: 0.7}
}

// Config holds generation backend configuration for one model.
type Config struct {
	Provider string // "ollama", "openai" or "anthropic"
	APIKey   string // API key, unused by ollama
	Model    string // model name (e.g. "sqlcoder:7b", "gpt-4o")
	BaseURL  string // endpoint base URL
}

// New creates a Generator based on configuration.
func New(cfg Config) (Generator, error) {
	if cfg.Provider == "" {
		cfg.Provider = "ollama"
	}

	switch cfg.Provider {
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = "http://localhost:11434"
		}
		if cfg.Model == "" {
			cfg.Model = "llama3.2:7b"
		}
		return NewOllamaGenerator(cfg.Model, cfg.BaseURL), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for the openai provider")
		}
		if cfg.Model == "" {
			cfg.Model = "gpt-4o"
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.openai.com/v1"
		}
		return NewOpenAIGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for the anthropic provider")
		}
		if cfg.Model == "" {
			cfg.Model = "claude-sonnet-4-20250514"
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.anthropic.com/v1"
		}
		return NewAnthropicGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: ollama, openai, anthropic)", cfg.Provider)
	}
}

// CleanSQL normalizes raw model output into a bare SQL statement: code
// fences and surrounding prose are dropped, trailing statement
// terminators removed, internal whitespace collapsed. The transform is
// idempotent.
func CleanSQL(raw string) string {
	s := strings.TrimSpace(raw)

	// Extract the fenced block when one is present, otherwise strip any
	// stray fence markers.
	if idx := strings.Index(s, "```sql"); idx != -1 {
		s = s[idx+len("```sql"):]
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	} else {
		s = strings.ReplaceAll(s, "```", "")
	}
	s = strings.TrimSpace(s)

	// Models sometimes preface the statement with an explanation. Keep
	// everything from the first line that starts with SELECT.
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(line)), "SELECT") {
			s = strings.Join(lines[i:], "\n")
			break
		}
	}
	if !strings.HasPrefix(strings.ToUpper(s), "SELECT") {
		if pos := strings.Index(strings.ToUpper(s), "SELECT"); pos != -1 {
			s = s[pos:]
		}
	}

	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}

	return strings.Join(strings.Fields(s), " ")
}
