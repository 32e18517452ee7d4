package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanSQL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare statement", "SELECT 1", "SELECT 1"},
		{"trailing semicolons", "SELECT 1;;\n", "SELECT 1"},
		{"fenced block", "```sql\nSELECT titulo FROM contenido\n```", "SELECT titulo FROM contenido"},
		{"stray fences", "```SELECT 1```", "SELECT 1"},
		{
			"leading prose",
			"Here is the query you asked for:\nSELECT COUNT(*) FROM usuarios;",
			"SELECT COUNT(*) FROM usuarios",
		},
		{
			"prose on same line",
			"Sure! SELECT nombre FROM usuarios",
			"SELECT nombre FROM usuarios",
		},
		{
			"multiline statement collapses",
			"SELECT titulo,\n  vistas\nFROM contenido",
			"SELECT titulo, vistas FROM contenido",
		},
		{"no select at all", "I cannot answer that", "I cannot answer that"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanSQL(tc.in)
			assert.Equal(t, tc.want, got)
			// Cleaning is idempotent.
			assert.Equal(t, got, CleanSQL(got))
		})
	}
}

func TestParsePromptStyle(t *testing.T) {
	for in, want := range map[string]PromptStyle{
		"default":  StyleDefault,
		"phi3":     StylePhi3,
		"sqlcoder": StyleSQLCoder,
	} {
		got, err := ParsePromptStyle(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePromptStyle("mistral")
	assert.Error(t, err)
}

func TestBuildSQLPrompt_HybridInstruction(t *testing.T) {
	for _, style := range []PromptStyle{StyleDefault, StylePhi3, StyleSQLCoder} {
		plain := BuildSQLPrompt(style, "top movies", "CREATE TABLE contenido (...)", false)
		hybrid := BuildSQLPrompt(style, "top movies", "CREATE TABLE contenido (...)", true)

		assert.NotContains(t, plain, "c.titulo", style.String())
		assert.Contains(t, hybrid, "c.titulo", style.String())
		assert.Contains(t, hybrid, "top movies")
		assert.Contains(t, hybrid, "CREATE TABLE contenido")
	}
}

func TestBuildClassifyPrompt(t *testing.T) {
	p := BuildClassifyPrompt("¿De qué trata la película más vista?")
	assert.Contains(t, p, "SQL")
	assert.Contains(t, p, "RAG")
	assert.Contains(t, p, "HYBRID")
	assert.Contains(t, p, "¿De qué trata la película más vista?")
}

// Temperature 0 must reach every provider's wire format explicitly;
// an omitted field would let the API fall back to its own default and
// make SQL generation and classification nondeterministic.
func TestRequestBodies_SendZeroTemperature(t *testing.T) {
	t.Run("anthropic", func(t *testing.T) {
		body, err := json.Marshal(anthropicRequest{Model: "claude-x", MaxTokens: 500, Temperature: 0})
		require.NoError(t, err)
		assert.Contains(t, string(body), `"temperature":0`)
	})

	t.Run("openai", func(t *testing.T) {
		body, err := json.Marshal(openAIRequest{Model: "gpt-x", MaxCompletionTokens: 500, Temperature: 0})
		require.NoError(t, err)
		assert.Contains(t, string(body), `"temperature":0`)
	})

	t.Run("ollama", func(t *testing.T) {
		body, err := json.Marshal(ollamaGenerateRequest{Model: "sqlcoder:7b", Options: ollamaOptions{Temperature: 0, NumPredict: 500}})
		require.NoError(t, err)
		assert.Contains(t, string(body), `"temperature":0`)
	})
}

func TestSamplingPresets(t *testing.T) {
	assert.Equal(t, Options{Temperature: 0, MaxTokens: 500}, SQLOptions(StyleDefault))
	assert.Equal(t, Options{Temperature: 0, MaxTokens: 500, TopK: 5, TopP: 0.7, RepeatPenalty: 1.0}, SQLOptions(StylePhi3))
	assert.Equal(t, 6, ClassifyOptions().MaxTokens)
	assert.Equal(t, 0.7, SynthesisOptions().Temperature)
}
