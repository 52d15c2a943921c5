package templates

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tvusvet/backend/pkg/apperror"
)

const (
	LangPT = "pt"
	LangEN = "en"
)

// Template is a reusable report-text snippet. (Lang, ExamType, Organ, Title)
// is unique; a nil ExamType is one distinct value.
type Template struct {
	TemplateID string    `json:"template_id" bson:"template_id"`
	Organ      string    `json:"organ" bson:"organ"`
	Title      string    `json:"title" bson:"title"`
	Text       string    `json:"text" bson:"text"`
	Lang       string    `json:"lang" bson:"lang"`
	ExamType   *string   `json:"exam_type" bson:"exam_type"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// NaturalKey identifies a template independently of its id.
type NaturalKey struct {
	Lang     string
	ExamType string
	Organ    string
	Title    string
}

func (t *Template) Key() NaturalKey {
	k := NaturalKey{Lang: t.Lang, Organ: t.Organ, Title: t.Title}
	if t.ExamType != nil {
		k.ExamType = *t.ExamType
	}
	return k
}

// TemplateInput is the body of POST /api/templates.
type TemplateInput struct {
	Organ    string  `json:"organ"`
	Title    string  `json:"title"`
	Text     string  `json:"text"`
	Lang     string  `json:"lang"`
	ExamType *string `json:"exam_type"`
}

// Validate checks lengths and fills in defaults. An empty exam_type is
// stored as absent.
func (in *TemplateInput) Validate() error {
	if in.Lang == "" {
		in.Lang = LangPT
	}
	in.ExamType = normalizeExamType(in.ExamType)
	if strings.TrimSpace(in.Title) == "" {
		return apperror.Validation("title is required")
	}
	if strings.TrimSpace(in.Text) == "" {
		return apperror.Validation("text is required")
	}
	return firstErr(
		validLang(&in.Lang),
		maxLen("organ", &in.Organ, 120),
		maxLen("title", &in.Title, 120),
		maxLen("text", &in.Text, 20000),
		maxLen("exam_type", in.ExamType, 80),
	)
}

// TemplatePatch is the body of PATCH /api/templates/{id}. An empty exam_type
// clears it.
type TemplatePatch struct {
	Organ    *string `json:"organ"`
	Title    *string `json:"title"`
	Text     *string `json:"text"`
	Lang     *string `json:"lang"`
	ExamType *string `json:"exam_type"`
}

func (p *TemplatePatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apperror.Validation("title must not be empty")
	}
	if p.Text != nil && strings.TrimSpace(*p.Text) == "" {
		return apperror.Validation("text must not be empty")
	}
	return firstErr(
		validLang(p.Lang),
		maxLen("organ", p.Organ, 120),
		maxLen("title", p.Title, 120),
		maxLen("text", p.Text, 20000),
		maxLen("exam_type", p.ExamType, 80),
	)
}

// Apply merges the patch into t.
func (p *TemplatePatch) Apply(t *Template) {
	if p.Organ != nil {
		t.Organ = *p.Organ
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Lang != nil {
		t.Lang = *p.Lang
	}
	if p.ExamType != nil {
		t.ExamType = normalizeExamType(p.ExamType)
	}
}

// Filter narrows template listings. Organ is exact; Query matches title or
// text.
type Filter struct {
	Lang     string
	ExamType string
	Organ    string
	Query    string
}

func normalizeExamType(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func validLang(s *string) error {
	if s == nil {
		return nil
	}
	if *s != LangPT && *s != LangEN {
		return apperror.Validation(fmt.Sprintf("invalid lang: %s", *s))
	}
	return nil
}

func maxLen(field string, s *string, n int) error {
	if s != nil && utf8.RuneCountInString(*s) > n {
		return apperror.Validation(fmt.Sprintf("%s exceeds %d characters", field, n))
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
