// Package cmd implements the streamagent command line.
package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/lib/pq"

	"streamagent/internal/agent"
	"streamagent/internal/classifier"
	"streamagent/internal/config"
	"streamagent/internal/docstore"
	"streamagent/internal/embedding"
	"streamagent/internal/llm"
	"streamagent/internal/schema"
	"streamagent/internal/sqlexec"
)

var rootCmd = &cobra.Command{
	Use:   "streamagent",
	Short: "Natural-language analytics assistant for a streaming platform",
	Long: `streamagent answers natural-language questions about a streaming
platform: it translates questions into SQL against the analytics
database, retrieves content summaries from an indexed document store,
or combines both, and phrases the result as a conversational answer.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// schemaSource adapts the schema cache plus its database handle to the
// single-argument interface the agent consumes.
type schemaSource struct {
	cache *schema.Cache
	db    *sql.DB
}

func (s schemaSource) Describe(ctx context.Context) (string, error) {
	return s.cache.Describe(ctx, s.db)
}

// runtime bundles everything a front end needs, built once at startup.
type runtime struct {
	cfg    config.Config
	log    *zap.Logger
	db     *sql.DB
	schema *schema.Cache
	store  *docstore.Store
	agent  *agent.Agent
}

func (rt *runtime) close() {
	if rt.store != nil {
		rt.store.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
	if rt.log != nil {
		rt.log.Sync()
	}
}

// buildRuntime wires the full pipeline from configuration. The document
// store is optional: if its index cannot be opened the agent runs in
// SQL-only mode.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		log.Sync()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	schemaCache := schema.NewCache()
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := schemaCache.Load(loadCtx, db); err != nil {
		log.Warn("could not load schema at startup", zap.Error(err))
	} else {
		log.Info("loaded schema", zap.Int("tables", schemaCache.TableCount()))
	}
	cancel()

	style, err := llm.ParsePromptStyle(cfg.PromptStyle)
	if err != nil {
		db.Close()
		log.Sync()
		return nil, err
	}

	sqlGen, err := newGenerator(cfg, cfg.SQLModel)
	if err != nil {
		db.Close()
		log.Sync()
		return nil, err
	}
	convGen, err := newGenerator(cfg, cfg.ConversationModel)
	if err != nil {
		db.Close()
		log.Sync()
		return nil, err
	}

	engine := embedding.NewOllamaEngine(cfg.EmbeddingEndpoint, cfg.EmbeddingModel)

	store, err := docstore.Open(cfg.DocIndexPath, engine, log.Named("docstore"))
	if err != nil {
		log.Warn("document index unavailable, answering with SQL only", zap.Error(err))
		store = nil
	}

	cls, err := newClassifier(ctx, cfg, engine, store != nil, log)
	if err != nil {
		if store != nil {
			store.Close()
		}
		db.Close()
		log.Sync()
		return nil, err
	}

	params := agent.Params{
		Classifier: cls,
		Schema:     schemaSource{cache: schemaCache, db: db},
		SQLGen:     sqlGen,
		ConvGen:    convGen,
		Runner:     sqlexec.New(db, log.Named("sqlexec")),
		Style:      style,
		TopK:       cfg.SearchTopK,
		Logger:     log.Named("agent"),
	}
	if store != nil {
		params.Retriever = store
	}

	log.Info("pipeline ready",
		zap.String("sql_model", sqlGen.Name()),
		zap.String("conversation_model", convGen.Name()),
		zap.String("classifier_strategy", string(cfg.Strategy)),
		zap.Bool("retrieval", store != nil))

	return &runtime{
		cfg:    cfg,
		log:    log,
		db:     db,
		schema: schemaCache,
		store:  store,
		agent:  agent.New(params),
	}, nil
}

func newGenerator(cfg config.Config, model string) (llm.Generator, error) {
	return llm.New(llm.Config{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey,
		Model:    model,
		BaseURL:  cfg.LLMBaseURL,
	})
}

func newClassifier(ctx context.Context, cfg config.Config, engine embedding.Engine, retrievalAvailable bool, log *zap.Logger) (classifier.Classifier, error) {
	switch cfg.Strategy {
	case config.StrategyEmbedding:
		if !retrievalAvailable {
			log.Warn("embedding classifier requested without a document index, using generative classifier")
		} else {
			return classifier.NewEmbedding(ctx, engine, log.Named("classifier")), nil
		}
	}

	gen, err := newGenerator(cfg, cfg.ClassifierModel)
	if err != nil {
		return nil, err
	}
	return classifier.NewGenerative(gen, retrievalAvailable, log.Named("classifier")), nil
}
