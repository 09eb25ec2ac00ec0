package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"signing-engine/internal/documents"
	"signing-engine/internal/engine"
	"signing-engine/internal/events"
	"signing-engine/internal/operations"
	"signing-engine/internal/shared/config"
	"signing-engine/internal/shared/storage/db"
	"signing-engine/internal/shared/storage/object"
	localstore "signing-engine/internal/shared/storage/object/local"
	s3store "signing-engine/internal/shared/storage/object/s3"
	"signing-engine/internal/signing"
	"signing-engine/internal/signing/docuseal"
)

// App holds the worker's shared dependencies.
type App struct {
	Config    config.Config
	DB        *sql.DB
	Repo      documents.Repo
	Store     object.ObjectStore
	Provider  signing.Provider
	Registry  *operations.Registry
	Publisher events.Publisher
	Engine    *engine.Engine
}

// Build prepares every dependency the worker needs.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var repo documents.Repo
	if sqlDB != nil {
		repo = &documents.PGRepo{DB: sqlDB}
	} else {
		repo = documents.NewMemoryRepo()
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := operations.NewRegistry()

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Repo:      repo,
		Store:     store,
		Provider:  provider,
		Registry:  registry,
		Publisher: publisher,
	}
	app.Engine = engine.New(repo, store, provider, registry, publisher, engine.Options{
		PollInterval: cfg.PollInterval(),
		BatchSize:    cfg.BatchSize,
		Concurrency:  cfg.WorkerConcurrency,
	})
	return app, nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repository")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultWorkerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repository: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildProvider(cfg config.Config) (signing.Provider, error) {
	switch cfg.SigningProvider {
	case "", "docuseal":
		return docuseal.New(&docuseal.Config{
			APIKey:  cfg.DocusealAPIKey,
			BaseURL: cfg.DocusealBaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown signing provider %q", cfg.SigningProvider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	if strings.TrimSpace(cfg.EventsQueueURL) == "" {
		return events.Noop{}, nil
	}
	return events.NewSQSPublisher(ctx, cfg.EventsQueueURL)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
