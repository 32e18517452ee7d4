package llm

import (
	"fmt"
	"strings"
)

// PromptStyle selects the SQL-generation template. The set is closed
// and chosen by configuration; nothing here inspects model names.
type PromptStyle int

const (
	StyleDefault PromptStyle = iota
	StylePhi3
	StyleSQLCoder
)

// ParsePromptStyle maps a configuration string onto a PromptStyle.
func ParsePromptStyle(s string) (PromptStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return StyleDefault, nil
	case "phi3":
		return StylePhi3, nil
	case "sqlcoder":
		return StyleSQLCoder, nil
	default:
		return StyleDefault, fmt.Errorf("unknown SQL prompt style: %q", s)
	}
}

// String returns the configuration name of the style.
func (s PromptStyle) String() string {
	switch s {
	case StylePhi3:
		return "phi3"
	case StyleSQLCoder:
		return "sqlcoder"
	default:
		return "default"
	}
}

// BuildSQLPrompt renders the SQL-generation prompt for one question.
// When hybrid is true the template insists on selecting the content
// title column so downstream document retrieval has a key to work with.
func BuildSQLPrompt(style PromptStyle, question, schema string, hybrid bool) string {
	switch style {
	case StylePhi3:
		return buildPhi3SQLPrompt(question, schema, hybrid)
	case StyleSQLCoder:
		return buildSQLCoderPrompt(question, schema, hybrid)
	default:
		return buildDefaultSQLPrompt(question, schema, hybrid)
	}
}

func buildPhi3SQLPrompt(question, schema string, hybrid bool) string {
	hybridRule := ""
	if hybrid {
		hybridRule = "\n- CRITICAL: ALWAYS include c.titulo (content title) in SELECT for ranking queries"
	}
	return fmt.Sprintf(`<|system|>
You are a PostgreSQL expert. Your task is to generate ONLY a valid PostgreSQL query.

Rules:
- Use proper table and column names from the schema
- Every non-aggregated column in SELECT must be in GROUP BY
- Use COUNT(*) for counting, SUM() for totals, AVG() for averages
- For "top N" or "most X" queries: use ORDER BY with LIMIT%s
- Use proper JOIN syntax with foreign key relationships
- Generate ONLY the SQL query, no explanations or markdown
<|end|>
<|user|>
Question: %s

Database Schema:
%s

Generate a PostgreSQL query to answer the question. Output ONLY the SQL query:
<|end|>
<|assistant|>
SELECT`, hybridRule, question, schema)
}

func buildSQLCoderPrompt(question, schema string, hybrid bool) string {
	hybridRule := ""
	if hybrid {
		hybridRule = "\n- **CRITICAL for ranking queries**: ALWAYS include c.titulo (content title) in the SELECT clause"
	}
	return fmt.Sprintf(`### Instructions:
Your task is to convert a question into a SQL query, given a PostgreSQL database schema.
Adhere to these rules:
- **Deliberately go through the question and database schema word by word** to appropriately answer the question
- **Use Table Aliases** to prevent ambiguity. For example, `+"`SELECT table1.col1, table2.col1 FROM table1 JOIN table2 ON table1.id = table2.id`"+`
- When creating a ratio, always cast the numerator as float
- **CRITICAL PostgreSQL GROUP BY rule**: Every non-aggregated column in SELECT must appear in GROUP BY
- Prefer simple queries over complex window functions when possible
- For "most viewed" or "most popular" queries, use COUNT(*), GROUP BY, ORDER BY, and LIMIT%s
- Use COUNT(*) for counting rows, SUM() for totals, AVG() for averages
- Generate ONLY valid PostgreSQL syntax
- Do NOT include explanations, comments, or additional text after the SQL query

### Input:
Generate a SQL query that answers the question `+"`%s`"+`.
This query will run on a PostgreSQL database whose schema is represented below:
%s

### Response:
`+"```sql", hybridRule, question, schema)
}

func buildDefaultSQLPrompt(question, schema string, hybrid bool) string {
	hybridRule := ""
	if hybrid {
		hybridRule = "\n- CRITICAL: Include c.titulo (content title) in SELECT for ranking queries"
	}
	return fmt.Sprintf(`You are a PostgreSQL expert. Generate ONLY a valid SQL query.

Question: %s

Database Schema:
%s

Generate a PostgreSQL query. Rules:
- Every non-aggregated column in SELECT must be in GROUP BY
- Use COUNT(*), SUM(), AVG() for aggregations
- Use ORDER BY with LIMIT for "top N" queries%s
- Output ONLY the SQL query, no explanations

SQL Query:`, question, schema, hybridRule)
}

// BuildClassifyPrompt renders the intent-classification prompt. The
// model is expected to answer with one of SQL, RAG, or HYBRID.
func BuildClassifyPrompt(question string) string {
	return fmt.Sprintf(`<|system|>
Classify queries: SQL, RAG, or HYBRID.

SQL - wants NAME/NUMBER/RANK only, no description:
"Most active user?" -> SQL
"Pelicula mas vista" -> SQL
"Top 10" -> SQL
"Which is most viewed?" -> SQL

RAG - asks about SPECIFIC named content:
"What is Aventuras Galacticas about?" -> RAG
"De que trata Terror Nocturno?" -> RAG

HYBRID - wants content ranking AND description (must have "content" + "trata/about/describe"):
"De que trata la pelicula mas vista?" -> HYBRID
"What is the most viewed series about?" -> HYBRID
"Tell me about the top rated pelicula" -> HYBRID

Rules:
- NO "trata/about/describe" = SQL (even with "mas/most")
- HYBRID only for content with description request
- Users/series/episodes asking for description = SQL (not in the document store)
<|end|>
<|user|>
Query: "%s"
<|end|>
<|assistant|>
Classification:`, question)
}

// BuildSynthesisPrompt renders the final answer prompt over the
// assembled context block. Retrieval-only answers get the descriptive
// phrasing; anything involving SQL results gets the summary phrasing.
func BuildSynthesisPrompt(question, contextBlock string, retrievalOnly bool) string {
	if retrievalOnly {
		return fmt.Sprintf(`You are a helpful AI assistant for a streaming platform.

The user asked: "%s"

%s

Provide a clear, informative answer based on the content information above.
Be concise but include key details about the content.

Response:`, question, contextBlock)
	}
	return fmt.Sprintf(`You are a helpful AI assistant for a streaming platform.

The user asked: "%s"

%s

Provide a brief, friendly summary combining the information above.
Be concise but informative. If there are many results, highlight the most relevant ones.

Response:`, question, contextBlock)
}
