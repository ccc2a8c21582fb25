package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/cultra/pkg/chunkstore"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func indexCommand() *cli.Command {
	var (
		cfg   config
		force bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Rebuild even if the stored index matches the source and settings",
			Destination: &force,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, firestoreFlags(&cfg)...)

	return &cli.Command{
		Name:  "index",
		Usage: "Build the chunk index from the source document and store it in Firestore",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			logger := logging.From(ctx)

			if cfg.firestoreProject == "" {
				return goerr.New("firestore-project is required to persist the index")
			}

			settings, err := cfg.loadSettings()
			if err != nil {
				return err
			}

			gemini, err := cfg.newGemini(ctx, settings)
			if err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = repo.Close()
			}()

			doc, err := cfg.loadDocument(ctx)
			if err != nil {
				return err
			}

			current, err := repo.GetIndexMeta(ctx)
			if err != nil {
				return err
			}
			candidate := &model.IndexMeta{
				EmbeddingModel: gemini.Name(),
				ChunkSize:      settings.ChunkSize,
				ChunkOverlap:   settings.ChunkOverlap,
				SourceDigest:   chunkstore.Digest(doc.Text()),
			}
			if !force && current != nil && current.SameBuild(candidate) {
				logger.Info("index is up to date, skipping",
					"source", current.SourceName,
					"chunks", current.ChunkCount)
				fmt.Fprintf(c.Root().Writer, "Index is up to date (%d chunks)\n", current.ChunkCount)
				return nil
			}

			store, err := cfg.buildStore(ctx, doc, gemini, settings)
			if err != nil {
				return err
			}

			if err := repo.PutChunks(ctx, store.Meta(), store.Chunks()); err != nil {
				return goerr.Wrap(err, "failed to store chunk index")
			}

			fmt.Fprintf(c.Root().Writer, "Indexed %d chunks from %s (digest %s)\n",
				store.Len(), store.Meta().SourceName, shortDigest(store.Meta().SourceDigest))
			return nil
		},
	}
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
