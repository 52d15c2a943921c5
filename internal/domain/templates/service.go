package templates

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tvusvet/backend/internal/platform/ident"
	"github.com/tvusvet/backend/pkg/pagination"
)

type Service struct {
	repo   Repository
	seeder *Seeder
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, seeder *Seeder, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		seeder: seeder,
		log:    log.With().Str("component", "templates").Logger(),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *Service) Create(ctx context.Context, in TemplateInput) (*Template, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	t := &Template{
		TemplateID: ident.New(ident.TemplatePrefix),
		Organ:      in.Organ,
		Title:      in.Title,
		Text:       in.Text,
		Lang:       in.Lang,
		ExamType:   in.ExamType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Template, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, pg pagination.Params) ([]*Template, error) {
	return s.repo.List(ctx, f, pg.Limit, pg.Offset)
}

func (s *Service) Update(ctx context.Context, id string, patch TemplatePatch) (*Template, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, patch, s.now())
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("template_id", id).Msg("template deleted")
	return nil
}

func (s *Service) Seed(ctx context.Context) (SeedResult, error) {
	return s.seeder.Seed(ctx)
}
