package templates

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeeder_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	seeder := NewSeeder(repo, DefaultCatalog(), zerolog.Nop())
	n := len(DefaultCatalog())

	first, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, first.Inserted)
	assert.Equal(t, 0, first.Updated)
	assert.Equal(t, int64(n), first.Total)

	second, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, n, second.Updated)
	assert.Equal(t, first.Total, second.Total)
}

func TestSeeder_UpdatesOnlyTextAndTimestamp(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	entry := CatalogEntry{Lang: LangPT, ExamType: ExamRadiology, Title: "Conclusão", Text: "v1"}

	seeder := NewSeeder(repo, []CatalogEntry{entry}, zerolog.Nop())
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seeder.now = func() time.Time { return t0 }
	_, err := seeder.Seed(ctx)
	require.NoError(t, err)

	before, err := repo.List(ctx, Filter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, before, 1)

	entry.Text = "v2"
	seeder.catalog = []CatalogEntry{entry}
	seeder.now = func() time.Time { return t0.Add(time.Hour) }
	res, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	after, err := repo.GetByID(ctx, before[0].TemplateID)
	require.NoError(t, err)
	assert.Equal(t, "v2", after.Text)
	assert.True(t, after.CreatedAt.Equal(t0), "created_at must not change")
	assert.True(t, after.UpdatedAt.Equal(t0.Add(time.Hour)))
}

func TestSeeder_KeepsUserTemplates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	svc := NewService(repo, NewSeeder(repo, DefaultCatalog(), zerolog.Nop()), zerolog.Nop())

	_, err := svc.Create(ctx, TemplateInput{Title: "Custom", Text: "mine", Organ: "Fígado"})
	require.NoError(t, err)

	res, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(DefaultCatalog())+1), res.Total)
}
