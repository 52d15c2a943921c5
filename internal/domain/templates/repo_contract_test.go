package templates

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvusvet/backend/internal/platform/db"
	"github.com/tvusvet/backend/internal/platform/docstore"
	"github.com/tvusvet/backend/internal/platform/ident"
	"github.com/tvusvet/backend/migrations"
	"github.com/tvusvet/backend/pkg/apperror"
)

func newTemplate(organ, title, lang string, examType *string, now time.Time) *Template {
	return &Template{
		TemplateID: ident.New(ident.TemplatePrefix),
		Organ:      organ, Title: title, Text: "text " + title, Lang: lang, ExamType: examType,
		CreatedAt: now, UpdatedAt: now,
	}
}

// runRepoContract checks the behaviour every backend must share.
func runRepoContract(t *testing.T, repo Repository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	a := newTemplate("Baço", "Normal", LangPT, strPtr(ExamUltrasoundAbd), now)
	require.NoError(t, repo.Create(ctx, a))
	dup := newTemplate("Baço", "Normal", LangPT, strPtr(ExamUltrasoundAbd), now)
	assert.True(t, apperror.IsKind(repo.Create(ctx, dup), apperror.KindDuplicateKey))

	b := newTemplate("", "Nota_100%", LangPT, nil, now)
	require.NoError(t, repo.Create(ctx, b))
	assert.True(t, apperror.IsKind(repo.Create(ctx, newTemplate("", "Nota_100%", LangPT, nil, now)),
		apperror.KindDuplicateKey), "absent exam_type is one key value")

	c := newTemplate("Aorta", "Normal", LangEN, nil, now)
	require.NoError(t, repo.Create(ctx, c))

	all, err := repo.List(ctx, Filter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"", "Aorta", "Baço"}, []string{all[0].Organ, all[1].Organ, all[2].Organ})

	found, err := repo.List(ctx, Filter{Query: "nota_100%"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)
	found, err = repo.List(ctx, Filter{Query: "n.ta"}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = repo.List(ctx, Filter{Lang: LangPT, ExamType: ExamUltrasoundAbd}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = repo.Update(ctx, c.TemplateID, TemplatePatch{Lang: strPtr(LangPT), Organ: strPtr(""), Title: strPtr("Nota_100%")}, now)
	assert.True(t, apperror.IsKind(err, apperror.KindDuplicateKey))

	later := now.Add(time.Minute)
	upd, err := repo.Update(ctx, a.TemplateID, TemplatePatch{ExamType: strPtr("")}, later)
	require.NoError(t, err)
	assert.Nil(t, upd.ExamType)
	assert.True(t, upd.UpdatedAt.Equal(later))

	seed := newTemplate("Baço", "Normal", LangPT, nil, later)
	seed.Text = "seeded"
	inserted, err := repo.Upsert(ctx, seed)
	require.NoError(t, err)
	assert.False(t, inserted)
	got, err := repo.GetByID(ctx, a.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, "seeded", got.Text)
	assert.True(t, got.CreatedAt.Equal(now))

	fresh := newTemplate("Rins", "Normal", LangPT, strPtr(ExamUltrasoundAbd), later)
	inserted, err = repo.Upsert(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, inserted)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, repo.Delete(ctx, b.TemplateID))
	assert.True(t, apperror.IsKind(repo.Delete(ctx, b.TemplateID), apperror.KindNotFound))
	_, err = repo.GetByID(ctx, b.TemplateID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestRepoContract_Memory(t *testing.T) {
	runRepoContract(t, NewMemoryRepo())
}

func TestRepoContract_Mongo(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URL")
	if uri == "" {
		t.Skip("TEST_MONGO_URL not set")
	}
	ctx := context.Background()
	client, err := docstore.Connect(ctx, uri, "tvusvet_templates_test")
	require.NoError(t, err)
	defer func() {
		_ = client.Database().Drop(ctx)
		_ = client.Close(ctx)
	}()
	require.NoError(t, client.EnsureIndexes(ctx))
	runRepoContract(t, NewRepoMongo(client))
}

func TestRepoContract_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	const schema = "tvusvet_templates_test"
	pool, err := db.NewPool(ctx, url, schema, 4, 1)
	require.NoError(t, err)
	defer func() {
		_, _ = pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
		pool.Close()
	}()
	_, err = db.NewMigrator(pool, migrations.Files).Up(ctx, schema)
	require.NoError(t, err)
	runRepoContract(t, NewRepoPG(pool))
}
