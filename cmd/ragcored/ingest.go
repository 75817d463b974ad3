package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/internal/embeddings"
	"github.com/baliwise/ragcore/internal/rag/index"
	"github.com/baliwise/ragcore/internal/rag/store/pgvector"
	"github.com/baliwise/ragcore/internal/retrieval"
)

func newIngestCommand() *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Parse, chunk, embed, and index documents into a collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cc, ok := cfg.Retrieval.Collections[collection]
			if !ok {
				return fmt.Errorf("unknown collection %q", collection)
			}

			st, err := pgvector.New(pgvector.Config{DSN: cc.DSN, Dimension: cc.Dimension})
			if err != nil {
				return err
			}
			defer st.Close()

			embedder, err := embeddings.NewOpenAI(embeddings.OpenAIConfig{APIKey: providerKey(cfg, "openai")})
			if err != nil {
				return err
			}
			indexer := index.New(st, embedder)

			// Ingestion holds the collection's write lock so searches never
			// interleave with a partially indexed document set.
			locks := retrieval.NewCollectionManager(cfg.Retrieval, nil)
			return locks.WithWriteLock(collection, func() error {
				for _, path := range args {
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					result, err := indexer.Index(cmd.Context(), &index.Request{
						Content:   f,
						Name:      filepath.Base(path),
						Source:    "upload",
						SourceURI: path,
					})
					f.Close()
					if err != nil {
						return fmt.Errorf("index %s: %w", path, err)
					}
					fmt.Printf("%s: %d chunks, %d tokens\n", path, result.ChunkCount, result.TotalTokens)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "target collection name")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}
