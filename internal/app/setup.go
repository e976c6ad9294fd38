package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	genkitapi "github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"

	"github.com/kynahq/kyna/db"
	"github.com/kynahq/kyna/internal/api"
	"github.com/kynahq/kyna/internal/catalog"
	"github.com/kynahq/kyna/internal/config"
	"github.com/kynahq/kyna/internal/document"
	"github.com/kynahq/kyna/internal/embed"
	"github.com/kynahq/kyna/internal/index"
	"github.com/kynahq/kyna/internal/llm"
	"github.com/kynahq/kyna/internal/log"
	"github.com/kynahq/kyna/internal/memory"
	"github.com/kynahq/kyna/internal/rag"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.onClose(pool.Close)

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder, err := provideEmbedder(g, cfg)
	if err != nil {
		return nil, err
	}

	a.Catalog = catalog.New(pool, logger.With("component", "catalog"))
	a.Index = index.NewStore(pool, logger.With("component", "index"))

	sessions, err := provideSessionStore(ctx, cfg, logger, a)
	if err != nil {
		return nil, err
	}
	a.Sessions = sessions

	model := llm.NewGenkit(g, cfg.FullModelName(), cfg.Temperature, cfg.MaxTokens,
		logger.With("component", "llm"))

	chain, err := rag.NewChain(embedder, a.Index, model, sessions, rag.ChainConfig{
		TopK:           cfg.TopK,
		SearchMode:     cfg.SearchMode,
		ScoreThreshold: cfg.ScoreThreshold,
		PromptPath:     cfg.PromptPath,
	}, logger.With("component", "chain"))
	if err != nil {
		return nil, err
	}
	a.Chain = chain

	processor, err := document.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	a.Ingestor = rag.NewIngestor(processor, embedder, a.Index, a.Catalog, nil,
		logger.With("component", "ingestor"))

	server, err := api.NewServer(api.ServerConfig{
		Logger:          logger.With("component", "api"),
		Chain:           chain,
		Ingestor:        a.Ingestor,
		Catalog:         a.Catalog,
		Pool:            pool,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		MaxUploadBytes:  cfg.MaxUploadBytes,
	})
	if err != nil {
		return nil, err
	}
	a.Server = server

	return a, nil
}

// provideDBPool runs migrations, then creates a PostgreSQL connection pool
// with pgvector types registered on every connection.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // gemini / googleai
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider plugin
// and wraps it for chunk and query embedding. Each provider registers
// embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName), with the output dimensionality
//     pinned to the chunks schema
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) (embed.Embedder, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var aiEmbedder ai.Embedder
	var opts []embed.Option

	switch provider {
	case config.ProviderOllama:
		aiEmbedder = ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		aiEmbedder = genkit.LookupEmbedder(g, genkitapi.NewName("openai", cfg.EmbedderModel))
	default:
		aiEmbedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
		dim := int32(index.VectorDimension)
		opts = append(opts, embed.WithRequestOptions(&genai.EmbedContentConfig{
			OutputDimensionality: &dim,
		}))
	}

	if aiEmbedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, provider)
	}
	return embed.NewGenkit(aiEmbedder, opts...), nil
}

// provideSessionStore creates the conversational memory backend.
func provideSessionStore(ctx context.Context, cfg *config.Config, logger log.Logger, a *App) (memory.Store, error) {
	opts := memory.Options{
		TTL:      time.Duration(cfg.SessionTTLSeconds) * time.Second,
		MaxTurns: config.NormalizeMaxHistoryLength(cfg.MaxHistoryLength),
	}

	if cfg.MemoryBackend == config.MemoryBackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("pinging redis: %w", err)
		}

		a.onClose(func() {
			if err := client.Close(); err != nil {
				logger.Warn("closing redis client", "error", err)
			}
		})
		logger.Info("session memory backed by redis", "addr", cfg.RedisAddr)
		return memory.NewRedis(client, opts, logger.With("component", "memory")), nil
	}

	logger.Info("session memory held in process")
	return memory.NewInProcess(opts), nil
}
