// Package agent orchestrates answering a natural-language question:
// classify its intent, generate and execute SQL, retrieve supporting
// documents, and synthesize a final answer. Each question runs through
// an explicit state machine; the first error short-circuits to an
// apology, and no state is carried between questions.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"streamagent/internal/classifier"
	"streamagent/internal/docstore"
	"streamagent/internal/llm"
	"streamagent/internal/sqlexec"
)

// titleColumn is the well-known column name whose values identify
// content rows. Hybrid retrieval keys off it.
const titleColumn = "titulo"

// docPreviewLimit caps how much of each document reaches the
// synthesis prompt.
const docPreviewLimit = 500

// SchemaSource provides a textual description of the analytics
// database schema for SQL generation prompts.
type SchemaSource interface {
	Describe(ctx context.Context) (string, error)
}

// SQLRunner validates and executes a SQL statement.
type SQLRunner interface {
	Execute(ctx context.Context, stmt string) sqlexec.Result
}

// Retriever looks up documents by semantic similarity or exact title.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) docstore.Result
	GetByTitle(ctx context.Context, title string) docstore.Result
}

// Result is everything a single question produced.
type Result struct {
	RequestID  string           `json:"request_id"`
	Question   string           `json:"question"`
	Answer     string           `json:"answer"`
	Intent     string           `json:"intent"`
	SQL        string           `json:"sql,omitempty"`
	Execution  *sqlexec.Result  `json:"execution,omitempty"`
	Retrieval  *docstore.Result `json:"retrieval,omitempty"`
	Err        string           `json:"error,omitempty"`
	DurationMs int64            `json:"durationMs"`
}

// Agent wires the pipeline's collaborators together. Retriever may be
// nil, in which case every question is answered with SQL alone.
type Agent struct {
	classifier classifier.Classifier
	schema     SchemaSource
	sqlGen     llm.Generator
	convGen    llm.Generator
	runner     SQLRunner
	retriever  Retriever
	style      llm.PromptStyle
	topK       int
	log        *zap.Logger
}

// Params collects the collaborators for New.
type Params struct {
	Classifier classifier.Classifier
	Schema     SchemaSource
	SQLGen     llm.Generator
	ConvGen    llm.Generator
	Runner     SQLRunner
	Retriever  Retriever
	Style      llm.PromptStyle
	TopK       int
	Logger     *zap.Logger
}

func New(p Params) *Agent {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.TopK <= 0 {
		p.TopK = 3
	}
	return &Agent{
		classifier: p.Classifier,
		schema:     p.Schema,
		sqlGen:     p.SQLGen,
		convGen:    p.ConvGen,
		runner:     p.Runner,
		retriever:  p.Retriever,
		style:      p.Style,
		topK:       p.TopK,
		log:        p.Logger,
	}
}

type state int

const (
	stateClassify state = iota
	stateGenerateSQL
	stateExecuteSQL
	stateRetrieve
	stateSynthesize
	stateError
	stateDone
)

// pipeline is the per-question scratch state. A fresh one is built for
// every Ask call.
type pipeline struct {
	question  string
	intent    classifier.Intent
	sql       string
	execution *sqlexec.Result
	retrieval *docstore.Result
	answer    string
	err       string
}

// Ask runs one question through the pipeline and always returns a
// renderable Result: on failure Answer carries an apology and Err the
// underlying cause.
func (a *Agent) Ask(ctx context.Context, question string) Result {
	start := time.Now()
	requestID := uuid.NewString()
	log := a.log.With(zap.String("request_id", requestID))
	log.Info("processing question", zap.String("question", question))

	p := &pipeline{question: strings.TrimSpace(question)}

	st := stateClassify
	for st != stateDone {
		switch st {
		case stateClassify:
			st = a.classify(ctx, p, log)
		case stateGenerateSQL:
			st = a.generateSQL(ctx, p, log)
		case stateExecuteSQL:
			st = a.executeSQL(ctx, p, log)
		case stateRetrieve:
			st = a.retrieve(ctx, p, log)
		case stateSynthesize:
			st = a.synthesize(ctx, p, log)
		case stateError:
			st = a.apologize(p, log)
		}
	}

	return Result{
		RequestID:  requestID,
		Question:   p.question,
		Answer:     p.answer,
		Intent:     p.intent.String(),
		SQL:        p.sql,
		Execution:  p.execution,
		Retrieval:  p.retrieval,
		Err:        p.err,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// classify routes the question. Classifiers never fail, so the only
// outgoing edges are the two happy paths.
func (a *Agent) classify(ctx context.Context, p *pipeline, log *zap.Logger) state {
	p.intent = a.classifier.Classify(ctx, p.question)
	log.Info("question classified", zap.Stringer("intent", p.intent))

	if p.intent == classifier.IntentRetrieval {
		return stateRetrieve
	}
	return stateGenerateSQL
}

func (a *Agent) generateSQL(ctx context.Context, p *pipeline, log *zap.Logger) state {
	schemaText, err := a.schema.Describe(ctx)
	if err != nil {
		p.err = fmt.Sprintf("Error generating SQL: %v", err)
		log.Error("schema description failed", zap.Error(err))
		return stateError
	}

	hybrid := p.intent == classifier.IntentHybrid
	prompt := llm.BuildSQLPrompt(a.style, p.question, schemaText, hybrid)

	raw, err := a.sqlGen.Generate(ctx, prompt, llm.SQLOptions(a.style))
	if err != nil {
		p.err = fmt.Sprintf("Error generating SQL: %v", err)
		log.Error("SQL generation failed", zap.Error(err))
		return stateError
	}

	p.sql = llm.CleanSQL(raw)
	if p.sql == "" {
		p.err = "SQL model returned empty response"
		log.Error("SQL model returned empty response", zap.String("raw", raw))
		return stateError
	}

	log.Info("generated SQL", zap.String("sql", p.sql))
	return stateExecuteSQL
}

func (a *Agent) executeSQL(ctx context.Context, p *pipeline, log *zap.Logger) state {
	res := a.runner.Execute(ctx, p.sql)
	p.execution = &res

	if !res.Success {
		p.err = res.Error
		log.Error("SQL execution failed",
			zap.String("sql", p.sql),
			zap.String("error", res.Error))
		return stateError
	}

	log.Info("SQL executed", zap.Int("rows", res.RowCount))
	if p.intent == classifier.IntentHybrid {
		return stateRetrieve
	}
	return stateSynthesize
}

// retrieve fetches documents. Failure is fatal only when the whole
// answer depends on retrieval; hybrid questions degrade to SQL-only.
func (a *Agent) retrieve(ctx context.Context, p *pipeline, log *zap.Logger) state {
	if a.retriever == nil {
		if p.intent == classifier.IntentRetrieval {
			p.err = "document retrieval not available"
			return stateError
		}
		log.Warn("no document index configured, continuing with SQL results only")
		return stateSynthesize
	}

	var res docstore.Result
	if p.intent == classifier.IntentHybrid {
		titles := extractTitles(p.execution)
		if len(titles) == 0 {
			log.Warn("no titles in SQL results, falling back to semantic search")
			res = a.retriever.Search(ctx, p.question, a.topK)
		} else {
			log.Info("retrieving documents by title", zap.Strings("titles", titles))
			res = a.retrieveByTitles(ctx, titles, log)
		}
	} else {
		res = a.retriever.Search(ctx, p.question, a.topK)
	}

	if !res.Success {
		if p.intent == classifier.IntentRetrieval {
			p.err = res.Error
			log.Error("document retrieval failed", zap.String("error", res.Error))
			return stateError
		}
		log.Warn("document retrieval failed, continuing without documents",
			zap.String("error", res.Error))
		return stateSynthesize
	}

	p.retrieval = &res
	log.Info("retrieved documents", zap.Int("count", len(res.Documents)))
	return stateSynthesize
}

// retrieveByTitles resolves each title to a document: exact index
// lookup first, then a single-result semantic search over the title
// text. Titles that match nothing are skipped.
func (a *Agent) retrieveByTitles(ctx context.Context, titles []string, log *zap.Logger) docstore.Result {
	var docs []docstore.Document
	for _, title := range titles {
		exact := a.retriever.GetByTitle(ctx, title)
		if exact.Success {
			docs = append(docs, exact.Documents...)
			continue
		}

		log.Warn("no exact match for title, trying semantic search",
			zap.String("title", title))
		near := a.retriever.Search(ctx, title, 1)
		if near.Success && len(near.Documents) > 0 {
			docs = append(docs, near.Documents...)
		} else {
			log.Warn("no match found for title", zap.String("title", title))
		}
	}

	if len(docs) == 0 {
		return docstore.Result{Error: "no documents found for the specified titles"}
	}
	return docstore.Result{Success: true, Documents: docs}
}

func (a *Agent) synthesize(ctx context.Context, p *pipeline, log *zap.Logger) state {
	contextBlock := buildContext(p)
	retrievalOnly := p.intent == classifier.IntentRetrieval

	answer, err := a.convGen.Generate(ctx,
		llm.BuildSynthesisPrompt(p.question, contextBlock, retrievalOnly),
		llm.SynthesisOptions())
	if err != nil {
		p.err = fmt.Sprintf("Error formatting response: %v", err)
		log.Error("answer synthesis failed", zap.Error(err))
		return stateError
	}

	p.answer = strings.TrimSpace(answer)
	return stateDone
}

// apologize renders the terminal error answer. It cannot fail.
func (a *Agent) apologize(p *pipeline, log *zap.Logger) state {
	msg := p.err
	if msg == "" {
		msg = "Unknown error occurred"
	}
	p.answer = fmt.Sprintf(
		"I encountered an error while processing your request:\n\n❌ %s\n\nPlease try rephrasing your question or ask something else.",
		msg)
	log.Info("answered with error message", zap.String("error", msg))
	return stateDone
}

// extractTitles collects the values of the title column from executed
// SQL rows, skipping nulls and empty strings.
func extractTitles(res *sqlexec.Result) []string {
	if res == nil || !res.Success {
		return nil
	}

	col := -1
	for i, name := range res.Columns {
		if strings.EqualFold(name, titleColumn) {
			col = i
			break
		}
	}
	if col == -1 {
		return nil
	}

	var titles []string
	for _, row := range res.Rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		title := strings.TrimSpace(fmt.Sprint(row[col]))
		if title != "" {
			titles = append(titles, title)
		}
	}
	return titles
}

// buildContext assembles the synthesis prompt context from whatever
// the pipeline produced.
func buildContext(p *pipeline) string {
	var parts []string

	if p.execution != nil && p.execution.Success {
		parts = append(parts, fmt.Sprintf("SQL Query executed:\n%s\n\nResults:\n%s",
			p.sql, sqlexec.Render(*p.execution)))
	}

	if p.retrieval != nil && len(p.retrieval.Documents) > 0 {
		var b strings.Builder
		b.WriteString("Content Information from PDFs:\n")
		for i, doc := range p.retrieval.Documents {
			fmt.Fprintf(&b, "\n[%d] %s (relevance: %.2f):\n%s\n",
				i+1, doc.Title(), doc.Similarity, preview(doc.Text))
		}
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n\n")
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= docPreviewLimit {
		return text
	}
	return string(runes[:docPreviewLimit]) + "..."
}
