package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ADDR", "DB_DRIVER", "DB_DSN",
		"LLM_PROVIDER", "LLM_BASE_URL", "LLM_API_KEY",
		"SQL_MODEL", "CONVERSATION_MODEL", "CLASSIFIER_MODEL", "SQL_PROMPT_STYLE",
		"EMBEDDING_ENDPOINT", "EMBEDDING_MODEL",
		"DOC_INDEX_PATH", "SUMMARIES_DIR", "SEARCH_TOP_K",
		"CLASSIFIER_STRATEGY", "DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, "default", cfg.PromptStyle)
	assert.Equal(t, StrategyGenerative, cfg.Strategy)
	assert.Equal(t, 3, cfg.SearchTopK)
	assert.False(t, cfg.Debug)

	// Without an explicit classifier model, classification shares the
	// conversation model.
	assert.Equal(t, cfg.ConversationModel, cfg.ClassifierModel)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("SQL_PROMPT_STYLE", "SQLCoder")
	t.Setenv("CLASSIFIER_MODEL", "phi3:mini")
	t.Setenv("CLASSIFIER_STRATEGY", "embedding")
	t.Setenv("SEARCH_TOP_K", "5")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "sqlcoder", cfg.PromptStyle)
	assert.Equal(t, "phi3:mini", cfg.ClassifierModel)
	assert.Equal(t, StrategyEmbedding, cfg.Strategy)
	assert.Equal(t, 5, cfg.SearchTopK)
	assert.True(t, cfg.Debug)
}

func TestLoad_InvalidEnums(t *testing.T) {
	cases := map[string]string{
		"LLM_PROVIDER":        "bedrock",
		"SQL_PROMPT_STYLE":    "mistral",
		"CLASSIFIER_STRATEGY": "random",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
