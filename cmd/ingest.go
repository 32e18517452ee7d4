package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"streamagent/internal/config"
	"streamagent/internal/docstore"
	"streamagent/internal/embedding"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index content summaries into the document store",
	Long: `Reads every .pdf, .txt, and .md file in the summaries directory,
embeds its text, and writes it to the document index. The document id
is the filename without extension, so a summary for "Aventuras
Galácticas" should be named Aventuras_Galácticas.pdf to be addressable
by exact title lookup.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg.Debug)
		if err != nil {
			return err
		}
		defer log.Sync()

		dir := cfg.SummariesDir
		if len(args) == 1 {
			dir = args[0]
		}

		engine := embedding.NewOllamaEngine(cfg.EmbeddingEndpoint, cfg.EmbeddingModel)
		store, err := docstore.Open(cfg.DocIndexPath, engine, log.Named("docstore"))
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.IngestDir(cmd.Context(), dir)
		if err != nil {
			return err
		}

		total, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}

		log.Info("ingestion complete",
			zap.String("dir", dir),
			zap.Int("indexed", n),
			zap.Int("total", total))
		fmt.Printf("Indexed %d document(s), %d total in %s\n", n, total, cfg.DocIndexPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
