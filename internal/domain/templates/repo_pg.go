package templates

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"

	"github.com/tvusvet/backend/internal/platform/db"
	"github.com/tvusvet/backend/pkg/apperror"
)

var pg = goqu.Dialect("postgres")

var templateCols = []any{"template_id", "organ", "title", "text", "lang", "exam_type", "created_at", "updated_at"}

type repoPG struct{ q db.Querier }

// NewRepoPG stores templates in the templates table. The natural key is the
// uq_templates_natural_key expression index.
func NewRepoPG(q db.Querier) Repository {
	return &repoPG{q: q}
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.TemplateID, &t.Organ, &t.Title, &t.Text, &t.Lang, &t.ExamType, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func toSQL(ds interface {
	ToSQL() (string, []interface{}, error)
}) (string, []interface{}, error) {
	q, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, apperror.Internal("build query", err)
	}
	return q, args, nil
}

func (r *repoPG) Create(ctx context.Context, t *Template) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO templates (template_id, organ, title, text, lang, exam_type, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.TemplateID, t.Organ, t.Title, t.Text, t.Lang, t.ExamType, t.CreatedAt, t.UpdatedAt)
	return db.TranslateError(err, "")
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Template, error) {
	q, args, err := toSQL(pg.From("templates").Prepared(true).Select(templateCols...).
		Where(goqu.C("template_id").Eq(id)))
	if err != nil {
		return nil, err
	}
	t, err := scanTemplate(r.q.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, db.TranslateError(err, notFound)
	}
	return t, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Template, error) {
	ds := pg.From("templates").Prepared(true).Select(templateCols...)
	if f.Lang != "" {
		ds = ds.Where(goqu.C("lang").Eq(f.Lang))
	}
	if f.ExamType != "" {
		ds = ds.Where(goqu.C("exam_type").Eq(f.ExamType))
	}
	if f.Organ != "" {
		ds = ds.Where(goqu.C("organ").Eq(f.Organ))
	}
	if f.Query != "" {
		pattern := "%" + db.EscapeLike(f.Query) + "%"
		ds = ds.Where(goqu.Or(goqu.C("title").ILike(pattern), goqu.C("text").ILike(pattern)))
	}
	ds = ds.Order(goqu.C("organ").Asc(), goqu.C("title").Asc(), goqu.C("template_id").Asc()).
		Limit(uint(limit)).Offset(uint(offset))

	q, args, err := toSQL(ds)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, db.TranslateError(err, "")
	}
	defer rows.Close()

	items := []*Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, db.TranslateError(err, "")
		}
		items = append(items, t)
	}
	return items, db.TranslateError(rows.Err(), "")
}

func (r *repoPG) Update(ctx context.Context, id string, patch TemplatePatch, now time.Time) (*Template, error) {
	set := goqu.Record{"updated_at": now}
	if patch.Organ != nil {
		set["organ"] = *patch.Organ
	}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}
	if patch.Lang != nil {
		set["lang"] = *patch.Lang
	}
	if patch.ExamType != nil {
		if et := normalizeExamType(patch.ExamType); et != nil {
			set["exam_type"] = *et
		} else {
			set["exam_type"] = nil
		}
	}

	q, args, err := toSQL(pg.Update("templates").Prepared(true).Set(set).
		Where(goqu.C("template_id").Eq(id)).Returning(templateCols...))
	if err != nil {
		return nil, err
	}
	t, err := scanTemplate(r.q.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, db.TranslateError(err, notFound)
	}
	return t, nil
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM templates WHERE template_id = $1`, id)
	if err != nil {
		return db.TranslateError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound(notFound)
	}
	return nil
}

// Upsert relies on xmax being zero only for freshly inserted rows.
func (r *repoPG) Upsert(ctx context.Context, t *Template) (bool, error) {
	var inserted bool
	err := r.q.QueryRow(ctx, `
		INSERT INTO templates (template_id, organ, title, text, lang, exam_type, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (lang, (COALESCE(exam_type, '')), organ, title)
		DO UPDATE SET text = EXCLUDED.text, updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		t.TemplateID, t.Organ, t.Title, t.Text, t.Lang, t.ExamType, t.CreatedAt, t.UpdatedAt,
	).Scan(&inserted)
	if err != nil {
		return false, db.TranslateError(err, "")
	}
	return inserted, nil
}

func (r *repoPG) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM templates`).Scan(&n)
	return n, db.TranslateError(err, "")
}
