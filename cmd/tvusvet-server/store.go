package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tvusvet/backend/internal/config"
	"github.com/tvusvet/backend/internal/domain/records"
	"github.com/tvusvet/backend/internal/domain/templates"
	"github.com/tvusvet/backend/internal/platform/db"
	"github.com/tvusvet/backend/internal/platform/docstore"
	"github.com/tvusvet/backend/migrations"
)

// store is the process-wide storage handle for the configured backend.
type store struct {
	patients  records.PatientRepository
	exams     records.ExamRepository
	images    records.ImageRepository
	templates templates.Repository
	pinger    db.Pinger
	close     func(ctx context.Context) error
}

func (s *store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, err := docstore.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		return &store{
			patients:  records.NewPatientRepoMongo(client),
			exams:     records.NewExamRepoMongo(client),
			images:    records.NewImageRepoMongo(client),
			templates: templates.NewRepoMongo(client),
			pinger:    client,
			close:     client.Close,
		}, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			n, err := db.NewMigrator(pool, migrations.Files).Up(ctx, cfg.DBSchema)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Int("applied", n).Str("schema", cfg.DBSchema).Msg("migrations applied")
		}
		return &store{
			patients:  records.NewPatientRepoPG(pool),
			exams:     records.NewExamRepoPG(pool),
			images:    records.NewImageRepoPG(pool),
			templates: templates.NewRepoPG(pool),
			pinger:    pool,
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case config.BackendMemory:
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		return newMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func newMemoryStore() *store {
	return &store{
		patients:  records.NewMemoryPatientRepo(),
		exams:     records.NewMemoryExamRepo(),
		images:    records.NewMemoryImageRepo(),
		templates: templates.NewMemoryRepo(),
		pinger:    db.PingFunc(func(context.Context) error { return nil }),
	}
}
