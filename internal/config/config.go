// Package config loads streamagent configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ClassifierStrategy selects how query intent is decided.
type ClassifierStrategy string

const (
	StrategyGenerative ClassifierStrategy = "generative"
	StrategyEmbedding  ClassifierStrategy = "embedding"
)

// Config holds everything the agent and its front ends need.
type Config struct {
	// HTTP
	Addr string

	// Relational store
	DBDriver string
	DBDSN    string

	// Generation backend
	LLMProvider       string // "ollama", "openai" or "anthropic"
	LLMBaseURL        string
	LLMAPIKey         string
	SQLModel          string
	ConversationModel string
	ClassifierModel   string
	PromptStyle       string // "default", "phi3", "sqlcoder"

	// Embeddings
	EmbeddingEndpoint string
	EmbeddingModel    string

	// Document store
	DocIndexPath string
	SummariesDir string
	SearchTopK   int

	// Classification
	Strategy ClassifierStrategy

	// Logging
	Debug bool
}

// Load reads configuration from the environment, loading .env first if
// present. Invalid enum values are startup errors, not silent fallbacks.
func Load() (Config, error) {
	_ = godotenv.Load() // loads .env if present, silently ignores if not

	cfg := Config{
		Addr:              env("ADDR", ":8080"),
		DBDriver:          env("DB_DRIVER", "postgres"),
		DBDSN:             env("DB_DSN", "postgres://localhost/streaming?sslmode=disable"),
		LLMProvider:       strings.ToLower(env("LLM_PROVIDER", "ollama")),
		LLMBaseURL:        env("LLM_BASE_URL", "http://localhost:11434"),
		LLMAPIKey:         os.Getenv("LLM_API_KEY"),
		SQLModel:          env("SQL_MODEL", "sqlcoder:7b"),
		ConversationModel: env("CONVERSATION_MODEL", "llama3.2:7b"),
		ClassifierModel:   os.Getenv("CLASSIFIER_MODEL"),
		PromptStyle:       strings.ToLower(env("SQL_PROMPT_STYLE", "default")),
		EmbeddingEndpoint: env("EMBEDDING_ENDPOINT", env("LLM_BASE_URL", "http://localhost:11434")),
		EmbeddingModel:    env("EMBEDDING_MODEL", "nomic-embed-text"),
		DocIndexPath:      env("DOC_INDEX_PATH", "summaries.db"),
		SummariesDir:      env("SUMMARIES_DIR", "summaries"),
		SearchTopK:        envInt("SEARCH_TOP_K", 3),
		Strategy:          ClassifierStrategy(strings.ToLower(env("CLASSIFIER_STRATEGY", string(StrategyGenerative)))),
		Debug:             envBool("DEBUG", false),
	}

	// The classifier model defaults to the conversation model, matching
	// how the classification prompt is tuned.
	if cfg.ClassifierModel == "" {
		cfg.ClassifierModel = cfg.ConversationModel
	}

	switch cfg.LLMProvider {
	case "ollama", "openai", "anthropic":
	default:
		return Config{}, fmt.Errorf("unknown LLM provider: %q (supported: ollama, openai, anthropic)", cfg.LLMProvider)
	}

	switch cfg.PromptStyle {
	case "default", "phi3", "sqlcoder":
	default:
		return Config{}, fmt.Errorf("unknown SQL prompt style: %q (supported: default, phi3, sqlcoder)", cfg.PromptStyle)
	}

	switch cfg.Strategy {
	case StrategyGenerative, StrategyEmbedding:
	default:
		return Config{}, fmt.Errorf("unknown classifier strategy: %q (supported: %s, %s)",
			cfg.Strategy, StrategyGenerative, StrategyEmbedding)
	}

	if cfg.SearchTopK <= 0 {
		cfg.SearchTopK = 3
	}

	return cfg, nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
