package templates

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tvusvet/backend/pkg/apperror"
)

type memRepo struct {
	mu    sync.RWMutex
	byID  map[string]*Template
	byKey map[NaturalKey]string
}

// NewMemoryRepo returns a Repository backed by process memory.
func NewMemoryRepo() Repository {
	return &memRepo{byID: make(map[string]*Template), byKey: make(map[NaturalKey]string)}
}

func clone(t *Template) *Template {
	cp := *t
	if t.ExamType != nil {
		v := *t.ExamType
		cp.ExamType = &v
	}
	return &cp
}

func (r *memRepo) Create(_ context.Context, t *Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.TemplateID]; ok {
		return apperror.DuplicateKey("template_id already exists")
	}
	if _, ok := r.byKey[t.Key()]; ok {
		return apperror.DuplicateKey("template with the same lang, exam_type, organ and title already exists")
	}
	r.byID[t.TemplateID] = clone(t)
	r.byKey[t.Key()] = t.TemplateID
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, apperror.NotFound("Template not found")
	}
	return clone(t), nil
}

func (r *memRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Template, error) {
	r.mu.RLock()
	items := make([]*Template, 0, len(r.byID))
	for _, t := range r.byID {
		if f.Lang != "" && t.Lang != f.Lang {
			continue
		}
		if f.ExamType != "" && (t.ExamType == nil || *t.ExamType != f.ExamType) {
			continue
		}
		if f.Organ != "" && t.Organ != f.Organ {
			continue
		}
		if f.Query != "" && !containsFold(t.Title, f.Query) && !containsFold(t.Text, f.Query) {
			continue
		}
		items = append(items, clone(t))
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Organ != items[j].Organ {
			return items[i].Organ < items[j].Organ
		}
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].TemplateID < items[j].TemplateID
	})

	if offset >= len(items) {
		return []*Template{}, nil
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (r *memRepo) Update(_ context.Context, id string, patch TemplatePatch, now time.Time) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[id]
	if !ok {
		return nil, apperror.NotFound("Template not found")
	}
	next := clone(cur)
	patch.Apply(next)
	next.UpdatedAt = now

	if owner, taken := r.byKey[next.Key()]; taken && owner != id {
		return nil, apperror.DuplicateKey("template with the same lang, exam_type, organ and title already exists")
	}
	delete(r.byKey, cur.Key())
	r.byKey[next.Key()] = id
	r.byID[id] = next
	return clone(next), nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return apperror.NotFound("Template not found")
	}
	delete(r.byKey, t.Key())
	delete(r.byID, id)
	return nil
}

func (r *memRepo) Upsert(_ context.Context, t *Template) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byKey[t.Key()]; ok {
		cur := r.byID[id]
		cur.Text = t.Text
		cur.UpdatedAt = t.UpdatedAt
		return false, nil
	}
	r.byID[t.TemplateID] = clone(t)
	r.byKey[t.Key()] = t.TemplateID
	return true, nil
}

func (r *memRepo) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
