package cli

import (
	"context"
	"strings"

	"github.com/m-mizutani/cultra/pkg/adapter"
	"github.com/m-mizutani/cultra/pkg/agent/fallback"
	"github.com/m-mizutani/cultra/pkg/chunkstore"
	"github.com/m-mizutani/cultra/pkg/docsource"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/cultra/pkg/repository"
	"github.com/m-mizutani/cultra/pkg/tool/websearch"
	"github.com/m-mizutani/cultra/pkg/usecase/interpret"
	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const defaultSource = "data/Cultural_Translator_Data.docx"

// config holds configuration values
type config struct {
	logLevel   string
	configPath string
	source     string

	// Adapters
	geminiProject  string
	geminiLocation string
	geminiAPIKey   string

	// Persisted index
	firestoreProject  string
	firestoreDatabase string
	firestorePrefix   string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("CULTRA_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to YAML file with pipeline settings",
			Sources:     cli.EnvVars("CULTRA_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "source",
			Aliases:     []string{"s"},
			Usage:       "Knowledge document (.docx, .txt, .md), local path or gs://bucket/object",
			Value:       defaultSource,
			Sources:     cli.EnvVars("CULTRA_SOURCE"),
			Destination: &cfg.source,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("CULTRA_GEMINI_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("CULTRA_GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini Developer API key. Used instead of Vertex AI when set",
			Sources:     cli.EnvVars("CULTRA_GEMINI_API_KEY", "GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
	}
}

// firestoreFlags returns flags for the persisted chunk index
func firestoreFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID of the Firestore chunk index. The index is built in memory when empty",
			Sources:     cli.EnvVars("CULTRA_FIRESTORE_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("CULTRA_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "firestore-prefix",
			Usage:       "Collection name prefix of the chunk index",
			Value:       "cultra",
			Sources:     cli.EnvVars("CULTRA_FIRESTORE_PREFIX"),
			Destination: &cfg.firestorePrefix,
		},
	}
}

// setupLogger installs the logger selected by --log-level into ctx
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, nil)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// loadSettings reads pipeline settings from --config
func (cfg *config) loadSettings() (*interpret.Config, error) {
	settings, err := interpret.LoadConfig(cfg.configPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load settings")
	}
	return settings, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context, settings *interpret.Config) (*adapter.GeminiClient, error) {
	opts := []adapter.GeminiOption{
		adapter.WithGenerativeModel(settings.GenerativeModel),
		adapter.WithEmbeddingModel(settings.EmbeddingModel),
		adapter.WithEmbeddingDimensions(settings.EmbeddingDimensions),
	}

	if cfg.geminiAPIKey != "" {
		opts = append(opts, adapter.WithAPIKey(cfg.geminiAPIKey))
	} else {
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project or gemini-api-key is required")
		}
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return gemini, nil
}

// newRepository returns nil when no Firestore project is configured
func (cfg *config) newRepository(ctx context.Context) (*repository.Firestore, error) {
	if cfg.firestoreProject == "" {
		return nil, nil
	}
	if cfg.firestoreDatabase == "" {
		return nil, goerr.New("firestore-database is required")
	}

	repo, err := repository.New(ctx, cfg.firestoreProject, cfg.firestoreDatabase,
		repository.WithCollectionPrefix(cfg.firestorePrefix))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newLoader creates a document loader. Cloud Storage is only connected for gs:// sources.
func (cfg *config) newLoader(ctx context.Context) (*docsource.Loader, error) {
	if !strings.HasPrefix(cfg.source, "gs://") {
		return docsource.New(), nil
	}

	storage, err := adapter.NewStorage(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return docsource.New(docsource.WithStorage(storage)), nil
}

// loadDocument reads --source
func (cfg *config) loadDocument(ctx context.Context) (*model.Document, error) {
	loader, err := cfg.newLoader(ctx)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, cfg.source)
}

// buildStore splits and embeds doc in memory
func (cfg *config) buildStore(ctx context.Context, doc *model.Document, embedder *adapter.GeminiClient, settings *interpret.Config) (*chunkstore.Store, error) {
	store, err := chunkstore.Build(ctx, doc, embedder,
		chunkstore.WithChunkSize(settings.ChunkSize),
		chunkstore.WithChunkOverlap(settings.ChunkOverlap))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build chunk store", goerr.V("source", cfg.source))
	}

	logging.From(ctx).Info("chunk store built",
		"source", doc.Name,
		"chunks", store.Len())
	return store, nil
}

// newStore opens the persisted index when Firestore is configured, otherwise builds one in memory
func (cfg *config) newStore(ctx context.Context, embedder *adapter.GeminiClient, settings *interpret.Config) (*chunkstore.Store, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		doc, err := cfg.loadDocument(ctx)
		if err != nil {
			return nil, err
		}
		return cfg.buildStore(ctx, doc, embedder, settings)
	}

	store, err := chunkstore.Open(ctx, embedder, repo)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open chunk index, run `cultra index` first")
	}

	logging.From(ctx).Info("chunk index opened",
		"source", store.Meta().SourceName,
		"chunks", store.Len())
	return store, nil
}

// newUseCase wires the whole pipeline. search must have parsed its flags.
func (cfg *config) newUseCase(ctx context.Context, search *websearch.Tool) (*interpret.UseCase, error) {
	settings, err := cfg.loadSettings()
	if err != nil {
		return nil, err
	}

	if err := search.Configure(); err != nil {
		return nil, goerr.Wrap(err, "failed to configure web search")
	}

	gemini, err := cfg.newGemini(ctx, settings)
	if err != nil {
		return nil, err
	}

	store, err := cfg.newStore(ctx, gemini, settings)
	if err != nil {
		return nil, err
	}

	agent := fallback.New(gemini, search, fallback.WithMaxIterations(settings.MaxIterations))

	logging.From(ctx).Debug("pipeline ready",
		"search_backend", search.BackendName(),
		"top_k", settings.TopK)

	return interpret.New(store, gemini, agent, settings), nil
}
