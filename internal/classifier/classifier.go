// Package classifier decides how a natural-language question should be
// answered: with SQL, with document retrieval, or with both.
package classifier

import "context"

// Intent is the routing decision for a question.
type Intent int

const (
	// IntentSQL answers from the relational database alone.
	IntentSQL Intent = iota
	// IntentRetrieval answers from indexed documents alone.
	IntentRetrieval
	// IntentHybrid runs SQL first, then enriches the rows with
	// document content.
	IntentHybrid
)

// Wire tokens as the classification models emit them.
const (
	tokenSQL    = "SQL"
	tokenRAG    = "RAG"
	tokenHybrid = "HYBRID"
)

func (i Intent) String() string {
	switch i {
	case IntentRetrieval:
		return tokenRAG
	case IntentHybrid:
		return tokenHybrid
	default:
		return tokenSQL
	}
}

// Classifier assigns an intent to a question. Implementations never
// fail: on any internal error they fall back to IntentSQL, since a SQL
// attempt degrades more gracefully than a missing answer.
type Classifier interface {
	Classify(ctx context.Context, question string) Intent
}
