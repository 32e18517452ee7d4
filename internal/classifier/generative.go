package classifier

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"streamagent/internal/llm"
)

// GenerativeClassifier asks a small language model to label the
// question with one of the intent tokens.
type GenerativeClassifier struct {
	gen       llm.Generator
	retrieval bool
	log       *zap.Logger
}

// NewGenerative builds a model-backed classifier. retrievalAvailable
// reports whether a document index is wired up; without one, every
// question is answered with SQL.
func NewGenerative(gen llm.Generator, retrievalAvailable bool, log *zap.Logger) *GenerativeClassifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &GenerativeClassifier{gen: gen, retrieval: retrievalAvailable, log: log}
}

// Classify labels the question. HYBRID is checked before RAG because a
// model describing a hybrid answer often mentions both tokens.
func (c *GenerativeClassifier) Classify(ctx context.Context, question string) Intent {
	if !c.retrieval {
		return IntentSQL
	}

	raw, err := c.gen.Generate(ctx, llm.BuildClassifyPrompt(question), llm.ClassifyOptions())
	if err != nil {
		c.log.Warn("classification model failed, defaulting to SQL", zap.Error(err))
		return IntentSQL
	}

	answer := strings.ToUpper(strings.TrimSpace(raw))
	var intent Intent
	switch {
	case strings.Contains(answer, tokenHybrid):
		intent = IntentHybrid
	case strings.Contains(answer, tokenRAG):
		intent = IntentRetrieval
	default:
		intent = IntentSQL
	}

	c.log.Debug("classified question",
		zap.String("question", question),
		zap.String("raw", answer),
		zap.Stringer("intent", intent))
	return intent
}
