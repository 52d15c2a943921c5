package templates

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tvusvet/backend/internal/platform/ident"
)

// SeedResult counts what a seeding run changed. Total is the size of the
// whole template collection afterwards.
type SeedResult struct {
	Inserted int   `json:"inserted"`
	Updated  int   `json:"updated"`
	Total    int64 `json:"total_templates"`
}

// Seeder upserts a catalog into a Repository. Running it twice leaves the
// collection size unchanged.
type Seeder struct {
	repo    Repository
	catalog []CatalogEntry
	log     zerolog.Logger
	now     func() time.Time
}

func NewSeeder(repo Repository, catalog []CatalogEntry, log zerolog.Logger) *Seeder {
	return &Seeder{
		repo:    repo,
		catalog: catalog,
		log:     log.With().Str("component", "template_seeder").Logger(),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *Seeder) Seed(ctx context.Context) (SeedResult, error) {
	var res SeedResult
	for _, e := range s.catalog {
		now := s.now()
		t := &Template{
			TemplateID: ident.New(ident.TemplatePrefix),
			Organ:      e.Organ,
			Title:      e.Title,
			Text:       e.Text,
			Lang:       e.Lang,
			ExamType:   normalizeExamType(&e.ExamType),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		inserted, err := s.repo.Upsert(ctx, t)
		if err != nil {
			return res, err
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return res, err
	}
	res.Total = total

	s.log.Info().
		Int("inserted", res.Inserted).
		Int("updated", res.Updated).
		Int64("total", res.Total).
		Msg("templates seeded")
	return res, nil
}
