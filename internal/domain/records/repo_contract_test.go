package records

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvusvet/backend/internal/platform/content"
	"github.com/tvusvet/backend/internal/platform/db"
	"github.com/tvusvet/backend/internal/platform/docstore"
	"github.com/tvusvet/backend/internal/platform/ident"
	"github.com/tvusvet/backend/migrations"
	"github.com/tvusvet/backend/pkg/apperror"
)

type repoSet struct {
	patients PatientRepository
	exams    ExamRepository
	images   ImageRepository
}

// runRepoContract exercises the storage semantics every backend must share.
func runRepoContract(t *testing.T, rs repoSet) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	p := &Patient{PatientID: ident.New(ident.PatientPrefix), Name: "Zé_50%", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, rs.patients.Create(ctx, p))
	assertKind(t, rs.patients.Create(ctx, p), apperror.KindDuplicateKey)

	found, err := rs.patients.List(ctx, PatientFilter{Query: "zé_50%"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, found, 1, "literal case-insensitive search")
	found, err = rs.patients.List(ctx, PatientFilter{Query: "z._"}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, found, "search term must be matched literally")

	updated, err := rs.patients.Update(ctx, p.PatientID, PatientPatch{Notes: strPtr("n")}, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "n", *updated.Notes)
	assert.Equal(t, p.Name, updated.Name)
	assert.True(t, updated.UpdatedAt.Equal(now.Add(time.Second)))
	_, err = rs.patients.Update(ctx, "pat_missing", PatientPatch{}, now)
	assertKind(t, err, apperror.KindNotFound)

	e := &Exam{
		ExamID: ident.New(ident.ExamPrefix), PatientID: p.PatientID, ExamType: DefaultExamType,
		Date: now, Status: ExamStatusDraft, OrgansData: []OrganFinding{{"organ": "baço"}},
		Images: []ImageRef{}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, rs.exams.Create(ctx, e))

	pid, eid := p.PatientID, e.ExamID
	img := &Image{
		ImageID: ident.New(ident.ImagePrefix), Filename: "a.dcm", MIMEType: "application/dicom",
		SizeBytes: 3, SHA256: "abc", Content: []byte{1, 2, 3}, Kind: content.KindDICOM,
		DICOMMeta: content.DICOMMeta{"parse_error": true}, PatientID: &pid, ExamID: &eid,
		Tags: []string{"t1"}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, rs.images.Create(ctx, img))
	require.NoError(t, rs.exams.AttachImage(ctx, eid, img.Ref(), now))
	assertKind(t, rs.exams.AttachImage(ctx, "exam_missing", img.Ref(), now), apperror.KindNotFound)

	meta, err := rs.images.GetByID(ctx, img.ImageID)
	require.NoError(t, err)
	assert.Nil(t, meta.Content, "metadata read excludes content")
	assert.Equal(t, content.KindDICOM, meta.Kind)
	assert.True(t, meta.DICOMMeta.ParseFailed())

	full, err := rs.images.GetWithContent(ctx, img.ImageID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, full.Content)

	refs, err := rs.images.RefsByExam(ctx, eid)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, img.ImageID, refs[0].ImageID)

	got, err := rs.exams.GetByID(ctx, eid)
	require.NoError(t, err)
	require.Len(t, got.Images, 1)
	assert.Equal(t, img.ImageID, got.Images[0].ImageID)
	assert.Equal(t, "baço", got.OrgansData[0]["organ"])

	require.NoError(t, rs.exams.DetachImage(ctx, eid, img.ImageID, now))
	got, err = rs.exams.GetByID(ctx, eid)
	require.NoError(t, err)
	assert.Empty(t, got.Images)
	assert.NoError(t, rs.exams.DetachImage(ctx, "exam_missing", img.ImageID, now), "detach from missing exam is a no-op")

	ids, err := rs.exams.IDsByPatient(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, []string{eid}, ids)

	n, err := rs.images.DeleteByPatient(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = rs.exams.DeleteByPatient(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, rs.patients.Delete(ctx, pid))
	assertKind(t, rs.patients.Delete(ctx, pid), apperror.KindNotFound)
}

func TestRepoContract_Memory(t *testing.T) {
	runRepoContract(t, repoSet{NewMemoryPatientRepo(), NewMemoryExamRepo(), NewMemoryImageRepo()})
}

func TestRepoContract_Mongo(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URL")
	if uri == "" {
		t.Skip("TEST_MONGO_URL not set")
	}
	ctx := context.Background()
	client, err := docstore.Connect(ctx, uri, "tvusvet_records_test")
	require.NoError(t, err)
	defer func() {
		_ = client.Database().Drop(ctx)
		_ = client.Close(ctx)
	}()
	require.NoError(t, client.EnsureIndexes(ctx))
	runRepoContract(t, repoSet{NewPatientRepoMongo(client), NewExamRepoMongo(client), NewImageRepoMongo(client)})
}

func TestRepoContract_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	const schema = "tvusvet_records_test"
	pool, err := db.NewPool(ctx, url, schema, 4, 1)
	require.NoError(t, err)
	defer dropSchema(ctx, pool, schema)
	_, err = db.NewMigrator(pool, migrations.Files).Up(ctx, schema)
	require.NoError(t, err)
	runRepoContract(t, repoSet{NewPatientRepoPG(pool), NewExamRepoPG(pool), NewImageRepoPG(pool)})
}

func dropSchema(ctx context.Context, pool *pgxpool.Pool, schema string) {
	_, _ = pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
	pool.Close()
}
