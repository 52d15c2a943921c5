package records

import (
	"context"
	"encoding/json"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"

	"github.com/tvusvet/backend/internal/platform/db"
	"github.com/tvusvet/backend/pkg/apperror"
)

var pg = goqu.Dialect("postgres")

// build renders a goqu statement with $n placeholders for pgx.
func build(ds interface {
	ToSQL() (string, []interface{}, error)
}) (string, []interface{}, error) {
	q, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, apperror.Internal("build query", err)
	}
	return q, args, nil
}

func jsonParam(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", apperror.Internal("encode json column", err)
	}
	return string(b), nil
}

func scanAll[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	items := []*T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, db.TranslateError(err, "")
		}
		items = append(items, v)
	}
	return items, db.TranslateError(rows.Err(), "")
}

type patientRepoPG struct{ q db.Querier }

func NewPatientRepoPG(q db.Querier) PatientRepository {
	return &patientRepoPG{q: q}
}

var patientCols = []any{"patient_id", "name", "species", "owner_name", "notes", "created_at", "updated_at"}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.PatientID, &p.Name, &p.Species, &p.OwnerName, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO patients (patient_id, name, species, owner_name, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.PatientID, p.Name, p.Species, p.OwnerName, p.Notes, p.CreatedAt, p.UpdatedAt)
	return db.TranslateError(err, "")
}

func (r *patientRepoPG) GetByID(ctx context.Context, id string) (*Patient, error) {
	q, args, err := build(pg.From("patients").Prepared(true).Select(patientCols...).
		Where(goqu.C("patient_id").Eq(id)))
	if err != nil {
		return nil, err
	}
	p, err := scanPatient(r.q.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, db.TranslateError(err, "Patient not found")
	}
	return p, nil
}

func (r *patientRepoPG) List(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, error) {
	ds := pg.From("patients").Prepared(true).Select(patientCols...)
	if f.Query != "" {
		pattern := "%" + db.EscapeLike(f.Query) + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("owner_name").ILike(pattern),
		))
	}
	ds = ds.Order(goqu.C("name").Asc(), goqu.C("patient_id").Asc()).
		Limit(uint(limit)).Offset(uint(offset))

	q, args, err := build(ds)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, db.TranslateError(err, "")
	}
	return scanAll(rows, scanPatient)
}

func (r *patientRepoPG) Update(ctx context.Context, id string, patch PatientPatch, now time.Time) (*Patient, error) {
	set := goqu.Record{"updated_at": now}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Species != nil {
		set["species"] = *patch.Species
	}
	if patch.OwnerName != nil {
		set["owner_name"] = *patch.OwnerName
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}

	q, args, err := build(pg.Update("patients").Prepared(true).Set(set).
		Where(goqu.C("patient_id").Eq(id)).Returning(patientCols...))
	if err != nil {
		return nil, err
	}
	p, err := scanPatient(r.q.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, db.TranslateError(err, "Patient not found")
	}
	return p, nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM patients WHERE patient_id = $1`, id)
	if err != nil {
		return db.TranslateError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("Patient not found")
	}
	return nil
}

type examRepoPG struct{ q db.Querier }

func NewExamRepoPG(q db.Querier) ExamRepository {
	return &examRepoPG{q: q}
}

var examCols = []any{"exam_id", "patient_id", "exam_type", "exam_date", "date", "status",
	"organs_data", "notes", "images", "created_at", "updated_at"}

func scanExam(row pgx.Row) (*Exam, error) {
	var e Exam
	err := row.Scan(&e.ExamID, &e.PatientID, &e.ExamType, &e.ExamDate, &e.Date, &e.Status,
		&e.OrgansData, &e.Notes, &e.Images, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return normalizeExam(&e), nil
}

func (r *examRepoPG) Create(ctx context.Context, e *Exam) error {
	organs, err := jsonParam(e.OrgansData)
	if err != nil {
		return err
	}
	images, err := jsonParam(e.Images)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO exams (exam_id, patient_id, exam_type, exam_date, date, status,
			organs_data, notes, images, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8,$9::jsonb,$10,$11)`,
		e.ExamID, e.PatientID, e.ExamType, e.ExamDate, e.Date, e.Status,
		organs, e.Notes, images, e.CreatedAt, e.UpdatedAt)
	return db.TranslateError(err, "")
}

func (r *examRepoPG) GetByID(ctx context.Context, id string) (*Exam, error) {
	q, args, err := build(pg.From("exams").Prepared(true).Select(examCols...).
		Where(goqu.C("exam_id").Eq(id)))
	if err != nil {
		return nil, err
	}
	e, err := scanExam(r.q.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, db.TranslateError(err, "Exam not found")
	}
	return e, nil
}

func (r *examRepoPG) List(ctx context.Context, f ExamFilter, limit, offset int) ([]*Exam, error) {
	ds := pg.From("exams").Prepared(true).Select(examCols...)
	if f.PatientID != "" {
		ds = ds.Where(goqu.C("patient_id").Eq(f.PatientID))
	}
	ds = ds.Order(goqu.C("date").Desc(), goqu.C("exam_id").Asc()).
		Limit(uint(limit)).Offset(uint(offset))

	q, args, err := build(ds)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, db.TranslateError(err, "")
	}
	return scanAll(rows, scanExam)
}

func (r *examRepoPG) Update(ctx context.Context, id string, patch ExamPatch, now time.Time) (*Exam, error) {
	set := goqu.Record{"updated_at": now}
	if patch.ExamType != nil {
		set["exam_type"] = *patch.ExamType
	}
	if patch.ExamDate != nil {
		set["exam_date"] = *patch.ExamDate
		set["date"] = *patch.ExamDate
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.OrgansData != nil {
		organs, err := jsonParam(patch.OrgansData)
		if err != nil {
			return nil, err
		}
		set["organs_data"] = goqu.L("?::jsonb", organs)
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}

	q, args, err := build(pg.Update("exams").Prepared(true).Set(set).
		Where(goqu.C("exam_id").Eq(id)).Returning(examCols...))
	if err != nil {
		return nil, err
	}
	e, err := scanExam(r.q.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, db.TranslateError(err, "Exam not found")
	}
	return e, nil
}

func (r *examRepoPG) IDsByPatient(ctx context.Context, patientID string) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT exam_id FROM exams WHERE patient_id = $1 ORDER BY exam_id`, patientID)
	if err != nil {
		return nil, db.TranslateError(err, "")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, db.TranslateError(err, "")
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (r *examRepoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM exams WHERE exam_id = $1`, id)
	if err != nil {
		return db.TranslateError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("Exam not found")
	}
	return nil
}

func (r *examRepoPG) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM exams WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, db.TranslateError(err, "")
	}
	return tag.RowsAffected(), nil
}

func (r *examRepoPG) AttachImage(ctx context.Context, examID string, ref ImageRef, now time.Time) error {
	elem, err := jsonParam([]ImageRef{ref})
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE exams SET images = images || $2::jsonb, updated_at = $3
		WHERE exam_id = $1`, examID, elem, now)
	if err != nil {
		return db.TranslateError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("Exam not found")
	}
	return nil
}

func (r *examRepoPG) DetachImage(ctx context.Context, examID, imageID string, now time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE exams SET images = COALESCE(
			(SELECT jsonb_agg(elem ORDER BY ord)
			   FROM jsonb_array_elements(images) WITH ORDINALITY AS t(elem, ord)
			  WHERE elem->>'image_id' <> $2),
			'[]'::jsonb),
			updated_at = $3
		WHERE exam_id = $1`, examID, imageID, now)
	return db.TranslateError(err, "")
}

func (r *examRepoPG) ReplaceImages(ctx context.Context, examID string, refs []ImageRef, now time.Time) (*Exam, error) {
	if refs == nil {
		refs = []ImageRef{}
	}
	images, err := jsonParam(refs)
	if err != nil {
		return nil, err
	}
	q, args, err := build(pg.Update("exams").Prepared(true).
		Set(goqu.Record{"images": goqu.L("?::jsonb", images), "updated_at": now}).
		Where(goqu.C("exam_id").Eq(examID)).Returning(examCols...))
	if err != nil {
		return nil, err
	}
	e, err := scanExam(r.q.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, db.TranslateError(err, "Exam not found")
	}
	return e, nil
}

type imageRepoPG struct{ q db.Querier }

func NewImageRepoPG(q db.Querier) ImageRepository {
	return &imageRepoPG{q: q}
}

var imageMetaCols = []any{"image_id", "filename", "mime_type", "size_bytes", "sha256", "kind",
	"dicom_meta", "patient_id", "exam_id", "tags", "created_at", "updated_at"}

func scanImage(row pgx.Row, extra ...any) (*Image, error) {
	var img Image
	dest := []any{&img.ImageID, &img.Filename, &img.MIMEType, &img.SizeBytes, &img.SHA256, &img.Kind,
		&img.DICOMMeta, &img.PatientID, &img.ExamID, &img.Tags, &img.CreatedAt, &img.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if img.Tags == nil {
		img.Tags = []string{}
	}
	return &img, nil
}

func scanImageMeta(row pgx.Row) (*Image, error) { return scanImage(row) }

func (r *imageRepoPG) Create(ctx context.Context, img *Image) error {
	var meta *string
	if img.DICOMMeta != nil {
		m, err := jsonParam(img.DICOMMeta)
		if err != nil {
			return err
		}
		meta = &m
	}
	tags := img.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO images (image_id, filename, mime_type, size_bytes, sha256, content, kind,
			dicom_meta, patient_id, exam_id, tags, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8::jsonb,$9,$10,$11,$12,$13)`,
		img.ImageID, img.Filename, img.MIMEType, img.SizeBytes, img.SHA256, img.Content, string(img.Kind),
		meta, img.PatientID, img.ExamID, tags, img.CreatedAt, img.UpdatedAt)
	return db.TranslateError(err, "")
}

func (r *imageRepoPG) GetByID(ctx context.Context, id string) (*Image, error) {
	q, args, err := build(pg.From("images").Prepared(true).Select(imageMetaCols...).
		Where(goqu.C("image_id").Eq(id)))
	if err != nil {
		return nil, err
	}
	img, err := scanImageMeta(r.q.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, db.TranslateError(err, "Image not found")
	}
	return img, nil
}

func (r *imageRepoPG) GetWithContent(ctx context.Context, id string) (*Image, error) {
	cols := append(append([]any{}, imageMetaCols...), "content")
	q, args, err := build(pg.From("images").Prepared(true).Select(cols...).
		Where(goqu.C("image_id").Eq(id)))
	if err != nil {
		return nil, err
	}
	var data []byte
	img, err := scanImage(r.q.QueryRow(ctx, q, args...), &data)
	if err != nil {
		return nil, db.TranslateError(err, "Image not found")
	}
	img.Content = data
	return img, nil
}

func imageWhere(f ImageFilter) []exp.Expression {
	var where []exp.Expression
	if f.PatientID != "" {
		where = append(where, goqu.C("patient_id").Eq(f.PatientID))
	}
	if f.ExamID != "" {
		where = append(where, goqu.C("exam_id").Eq(f.ExamID))
	}
	return where
}

func (r *imageRepoPG) List(ctx context.Context, f ImageFilter, limit, offset int) ([]*Image, error) {
	ds := pg.From("images").Prepared(true).Select(imageMetaCols...).
		Where(imageWhere(f)...).
		Order(goqu.C("created_at").Desc(), goqu.C("image_id").Asc()).
		Limit(uint(limit)).Offset(uint(offset))

	q, args, err := build(ds)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, db.TranslateError(err, "")
	}
	return scanAll(rows, scanImageMeta)
}

func (r *imageRepoPG) RefsByExam(ctx context.Context, examID string) ([]ImageRef, error) {
	q, args, err := build(pg.From("images").Prepared(true).Select(imageMetaCols...).
		Where(goqu.C("exam_id").Eq(examID)).
		Order(goqu.C("created_at").Asc(), goqu.C("image_id").Asc()))
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, db.TranslateError(err, "")
	}
	imgs, err := scanAll(rows, scanImageMeta)
	if err != nil {
		return nil, err
	}
	refs := make([]ImageRef, len(imgs))
	for i, img := range imgs {
		refs[i] = img.Ref()
	}
	return refs, nil
}

func (r *imageRepoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM images WHERE image_id = $1`, id)
	if err != nil {
		return db.TranslateError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("Image not found")
	}
	return nil
}

func (r *imageRepoPG) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM images WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, db.TranslateError(err, "")
	}
	return tag.RowsAffected(), nil
}

func (r *imageRepoPG) DeleteByExam(ctx context.Context, examID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM images WHERE exam_id = $1`, examID)
	if err != nil {
		return 0, db.TranslateError(err, "")
	}
	return tag.RowsAffected(), nil
}
