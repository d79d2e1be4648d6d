// Package bootstrap provides dependency initialization for the generation job API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgallego/genstudio-api/internal/config"
	"github.com/rgallego/genstudio-api/internal/heygen"
	"github.com/rgallego/genstudio-api/internal/job"
	"github.com/rgallego/genstudio-api/internal/llm"
	"github.com/rgallego/genstudio-api/internal/provider"
	"github.com/rgallego/genstudio-api/internal/replicate"
	"github.com/rgallego/genstudio-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	JobService *job.Service
	// Pool is non-nil when Postgres persistence is configured; the caller
	// owns closing it on shutdown.
	Pool *pgxpool.Pool
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	repo, pool, err := initRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	adapters, err := initAdapters(cfg, logger)
	if err != nil {
		return nil, err
	}

	archiver, err := initArchiver(cfg, logger)
	if err != nil {
		return nil, err
	}

	svc := job.NewService(repo, adapters, archiver, job.ServiceConfig{
		MaxSubmitRetries:  cfg.MaxSubmitRetries,
		SubmitBackoffBase: cfg.SubmitBackoffBase,
		ProviderTimeout:   cfg.ProviderTimeout,
	}, logger)

	return &Dependencies{JobService: svc, Pool: pool}, nil
}

// initRepository selects the job store backend based on configuration.
func initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (job.Repository, *pgxpool.Pool, error) {
	if cfg.PostgresEnabled() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create Postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping Postgres: %w", err)
		}
		logger.Info("Postgres job store configured")
		return job.NewPostgresRepository(pool), pool, nil
	}

	logger.Info("in-memory job store configured")
	return job.NewMemoryRepository(), nil, nil
}

// initAdapters builds the kind-to-adapter mapping resolved once at startup.
func initAdapters(cfg *config.Config, logger *slog.Logger) (map[job.Kind]provider.Adapter, error) {
	heygenOpts := []heygen.ClientOption{heygen.WithTimeout(cfg.ProviderTimeout)}
	if cfg.HeyGenBaseURL != "" {
		heygenOpts = append(heygenOpts, heygen.WithBaseURL(cfg.HeyGenBaseURL))
	}
	heygenClient, err := heygen.NewClient(cfg.HeyGenAPIKey, heygenOpts...)
	if err != nil {
		return nil, fmt.Errorf("create HeyGen client: %w", err)
	}

	replicateOpts := []replicate.ClientOption{replicate.WithTimeout(cfg.ProviderTimeout)}
	if cfg.ReplicateBaseURL != "" {
		replicateOpts = append(replicateOpts, replicate.WithBaseURL(cfg.ReplicateBaseURL))
	}
	replicateClient, err := replicate.NewClient(cfg.ReplicateAPIToken, replicateOpts...)
	if err != nil {
		return nil, fmt.Errorf("create Replicate client: %w", err)
	}

	adapters := map[job.Kind]provider.Adapter{
		job.KindAvatarVideo: provider.NewHeyGenAvatarAdapter(heygenClient),
		job.KindLipsync:     provider.NewHeyGenLipsyncAdapter(heygenClient),
		job.KindImage:       provider.NewReplicateImageAdapter(replicateClient, cfg.ReplicateImageVersion),
		job.KindVideo:       provider.NewReplicateVideoAdapter(replicateClient, cfg.ReplicateVideoVersion),
	}

	if cfg.IdeaEnabled() {
		llmClient, err := llm.NewClient(cfg.OpenAIAPIKey, llm.WithModel(cfg.OpenAIModel))
		if err != nil {
			return nil, fmt.Errorf("create LLM client: %w", err)
		}
		adapters[job.KindIdea] = provider.NewIdeaAdapter(llmClient)
	} else {
		logger.Info("idea kind disabled: OPENAI_API_KEY not set")
	}

	return adapters, nil
}

// initArchiver selects the result archiving backend, if any.
func initArchiver(cfg *config.Config, logger *slog.Logger) (storage.Archiver, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		archiver, err := storage.NewS3Archiver(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 archiver: %w", err)
		}
		logger.Info("S3 result archiving configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return archiver, nil
	}

	if cfg.ArchiveDir != "" {
		archiver, err := storage.NewLocalArchiver(cfg.ArchiveDir, cfg.ArchiveBaseURL)
		if err != nil {
			return nil, fmt.Errorf("create local archiver: %w", err)
		}
		logger.Info("local result archiving configured",
			slog.String("dir", cfg.ArchiveDir),
		)
		return archiver, nil
	}

	logger.Info("result archiving disabled")
	return nil, nil
}
