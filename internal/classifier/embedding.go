package classifier

import (
	"context"

	"go.uber.org/zap"

	"streamagent/internal/embedding"
)

// voteOrder fixes which intent wins a similarity tie. SQL is tried
// first since a failed SQL answer is recoverable by rephrasing, while
// skipping needed retrieval is not.
var voteOrder = []Intent{IntentSQL, IntentRetrieval, IntentHybrid}

// EmbeddingClassifier labels questions by nearest-example vote: each
// category's score is the maximum cosine similarity between the
// question and that category's labeled examples.
type EmbeddingClassifier struct {
	engine  embedding.Engine
	vectors map[Intent][][]float32
	log     *zap.Logger
}

// NewEmbedding precomputes embeddings for the labeled example set. If
// any example cannot be embedded the classifier is still returned but
// degrades to always answering IntentSQL.
func NewEmbedding(ctx context.Context, engine embedding.Engine, log *zap.Logger) *EmbeddingClassifier {
	if log == nil {
		log = zap.NewNop()
	}
	c := &EmbeddingClassifier{engine: engine, log: log}

	vectors := make(map[Intent][][]float32, len(defaultExamples))
	for intent, examples := range defaultExamples {
		vecs, err := engine.EmbedBatch(ctx, examples)
		if err != nil {
			log.Warn("could not precompute example embeddings, classifier will default to SQL",
				zap.Stringer("intent", intent),
				zap.Error(err))
			return c
		}
		vectors[intent] = vecs
	}
	c.vectors = vectors

	log.Info("precomputed classification example embeddings",
		zap.Int("categories", len(vectors)))
	return c
}

// Classify embeds the question and votes by per-category best match.
func (c *EmbeddingClassifier) Classify(ctx context.Context, question string) Intent {
	if len(c.vectors) == 0 {
		return IntentSQL
	}

	qv, err := c.engine.Embed(ctx, question)
	if err != nil {
		c.log.Warn("question embedding failed, defaulting to SQL", zap.Error(err))
		return IntentSQL
	}

	best := IntentSQL
	bestScore := -1.0
	for _, intent := range voteOrder {
		score := -1.0
		for _, ev := range c.vectors[intent] {
			if s := embedding.Cosine(qv, ev); s > score {
				score = s
			}
		}
		// Strict > keeps the earlier intent on a tie.
		if score > bestScore {
			best, bestScore = intent, score
		}
	}

	c.log.Debug("classified question by embedding vote",
		zap.String("question", question),
		zap.Stringer("intent", best),
		zap.Float64("score", bestScore))
	return best
}
