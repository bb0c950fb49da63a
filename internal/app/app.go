// Package app assembles the stores shared by the server, the worker and the
// CLI from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/Networkcaretaker/real-estate-backend/internal/config"
	"github.com/Networkcaretaker/real-estate-backend/internal/copywriter"
	"github.com/Networkcaretaker/real-estate-backend/internal/database"
	"github.com/Networkcaretaker/real-estate-backend/internal/images"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
	"github.com/Networkcaretaker/real-estate-backend/internal/pipeline"
	"github.com/Networkcaretaker/real-estate-backend/internal/repository"
	"github.com/Networkcaretaker/real-estate-backend/internal/s3storage"
	"github.com/Networkcaretaker/real-estate-backend/internal/search"
	"github.com/Networkcaretaker/real-estate-backend/internal/signing"
	"github.com/Networkcaretaker/real-estate-backend/internal/storage"
)

// PropertyStore is the full property persistence surface.
type PropertyStore interface {
	pipeline.PropertyStore
	UpdatePropertyAIMeta(ctx context.Context, id string, meta []model.CopyVersion) error
}

// ImageStore is the full image persistence surface.
type ImageStore interface {
	images.ImageStore
	UpdateImageAIMeta(ctx context.Context, propertyID, imageID string, meta []model.CopyVersion) error
}

// App holds the backends selected by configuration. Media is set only when
// renditions are kept in memory and served by the API itself.
type App struct {
	Config     *config.Config
	Log        logrus.FieldLogger
	Properties PropertyStore
	Images     ImageStore
	Blobs      images.BlobStore
	Media      *storage.BlobStore
	Indexer    *search.Indexer

	pool *pgxpool.Pool
}

// Open connects to Postgres, S3 and Meilisearch when they are configured and
// falls back to in-memory stores otherwise.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.pool = pool
		a.Properties = repository.NewPropertyRepository(pool)
		a.Images = repository.NewImageRepository(pool)
	} else {
		log.Warn("no database configured, using in-memory store")
		mem := storage.NewMemoryStore()
		a.Properties = mem
		a.Images = mem
	}

	if cfg.S3Endpoint != "" {
		s3, err := s3storage.New(cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init storage: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		a.Blobs = s3
	} else {
		log.Warn("no object storage configured, keeping renditions in memory")
		a.Media = storage.NewBlobStore(cfg.MediaBaseURL, signing.NewSigner([]byte(cfg.SigningSecret)))
		a.Blobs = a.Media
	}

	if cfg.MeiliHost != "" {
		ix := search.NewIndexer(cfg.MeiliHost, cfg.MeiliAPIKey, cfg.MeiliIndex)
		if err := ix.EnsureIndex(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure search index: %w", err)
		}
		a.Indexer = ix
	}
	return a, nil
}

// PipelineOptions returns the pipeline options implied by the configured
// backends.
func (a *App) PipelineOptions() []pipeline.Option {
	var opts []pipeline.Option
	if a.Indexer != nil {
		opts = append(opts, pipeline.WithIndexer(a.Indexer))
	}
	return opts
}

// Writer builds the copywriter, or returns nil when no API key is configured.
func (a *App) Writer(ctx context.Context) (*copywriter.Writer, error) {
	if a.Config.GeminiAPIKey == "" {
		return nil, nil
	}
	gen, err := copywriter.NewGemini(ctx, a.Config.GeminiAPIKey, a.Config.GeminiModel, a.Config.GeminiRPS)
	if err != nil {
		return nil, err
	}
	return copywriter.NewWriter(gen, a.Properties, a.Images, a.Blobs, a.Log), nil
}

// Close releases the database pool.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
