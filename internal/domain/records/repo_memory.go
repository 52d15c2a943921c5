package records

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tvusvet/backend/pkg/apperror"
)

// In-memory repositories for development and tests. They mirror the storage
// semantics of the database backends: unique ids, sorted listings and
// atomic per-record updates.

type memPatientRepo struct {
	mu       sync.RWMutex
	patients map[string]*Patient
}

func NewMemoryPatientRepo() PatientRepository {
	return &memPatientRepo{patients: make(map[string]*Patient)}
}

func (r *memPatientRepo) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.PatientID]; ok {
		return apperror.DuplicateKey("patient_id already exists")
	}
	cp := *p
	r.patients[p.PatientID] = &cp
	return nil
}

func (r *memPatientRepo) GetByID(_ context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, apperror.NotFound("Patient not found")
	}
	cp := *p
	return &cp, nil
}

func (r *memPatientRepo) List(_ context.Context, f PatientFilter, limit, offset int) ([]*Patient, error) {
	r.mu.RLock()
	items := make([]*Patient, 0, len(r.patients))
	for _, p := range r.patients {
		if f.Query != "" && !containsFold(p.Name, f.Query) && !containsFold(deref(p.OwnerName), f.Query) {
			continue
		}
		cp := *p
		items = append(items, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].PatientID < items[j].PatientID
	})
	return page(items, limit, offset), nil
}

func (r *memPatientRepo) Update(_ context.Context, id string, patch PatientPatch, now time.Time) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, apperror.NotFound("Patient not found")
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Species != nil {
		p.Species = patch.Species
	}
	if patch.OwnerName != nil {
		p.OwnerName = patch.OwnerName
	}
	if patch.Notes != nil {
		p.Notes = patch.Notes
	}
	p.UpdatedAt = now
	cp := *p
	return &cp, nil
}

func (r *memPatientRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[id]; !ok {
		return apperror.NotFound("Patient not found")
	}
	delete(r.patients, id)
	return nil
}

type memExamRepo struct {
	mu    sync.RWMutex
	exams map[string]*Exam
}

func NewMemoryExamRepo() ExamRepository {
	return &memExamRepo{exams: make(map[string]*Exam)}
}

func cloneExam(e *Exam) *Exam {
	cp := *e
	cp.Images = append([]ImageRef{}, e.Images...)
	cp.OrgansData = make([]OrganFinding, len(e.OrgansData))
	for i, f := range e.OrgansData {
		m := make(OrganFinding, len(f))
		for k, v := range f {
			m[k] = v
		}
		cp.OrgansData[i] = m
	}
	return &cp
}

func (r *memExamRepo) Create(_ context.Context, e *Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[e.ExamID]; ok {
		return apperror.DuplicateKey("exam_id already exists")
	}
	r.exams[e.ExamID] = cloneExam(e)
	return nil
}

func (r *memExamRepo) GetByID(_ context.Context, id string) (*Exam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.exams[id]
	if !ok {
		return nil, apperror.NotFound("Exam not found")
	}
	return cloneExam(e), nil
}

func (r *memExamRepo) List(_ context.Context, f ExamFilter, limit, offset int) ([]*Exam, error) {
	r.mu.RLock()
	items := make([]*Exam, 0, len(r.exams))
	for _, e := range r.exams {
		if f.PatientID != "" && e.PatientID != f.PatientID {
			continue
		}
		items = append(items, cloneExam(e))
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].ExamID < items[j].ExamID
	})
	return page(items, limit, offset), nil
}

func (r *memExamRepo) Update(_ context.Context, id string, patch ExamPatch, now time.Time) (*Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exams[id]
	if !ok {
		return nil, apperror.NotFound("Exam not found")
	}
	if patch.ExamType != nil {
		e.ExamType = *patch.ExamType
	}
	if patch.ExamDate != nil {
		d := *patch.ExamDate
		e.ExamDate = &d
		e.Date = d
	}
	if patch.Status != nil {
		e.Status = *patch.Status
	}
	if patch.OrgansData != nil {
		e.OrgansData = patch.OrgansData
	}
	if patch.Notes != nil {
		e.Notes = patch.Notes
	}
	e.UpdatedAt = now
	return cloneExam(e), nil
}

func (r *memExamRepo) IDsByPatient(_ context.Context, patientID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := []string{}
	for id, e := range r.exams {
		if e.PatientID == patientID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memExamRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[id]; !ok {
		return apperror.NotFound("Exam not found")
	}
	delete(r.exams, id)
	return nil
}

func (r *memExamRepo) DeleteByPatient(_ context.Context, patientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.exams {
		if e.PatientID == patientID {
			delete(r.exams, id)
			n++
		}
	}
	return n, nil
}

func (r *memExamRepo) AttachImage(_ context.Context, examID string, ref ImageRef, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exams[examID]
	if !ok {
		return apperror.NotFound("Exam not found")
	}
	e.Images = append(e.Images, ref)
	e.UpdatedAt = now
	return nil
}

func (r *memExamRepo) DetachImage(_ context.Context, examID, imageID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exams[examID]
	if !ok {
		return nil
	}
	kept := make([]ImageRef, 0, len(e.Images))
	for _, ref := range e.Images {
		if ref.ImageID != imageID {
			kept = append(kept, ref)
		}
	}
	e.Images = kept
	e.UpdatedAt = now
	return nil
}

func (r *memExamRepo) ReplaceImages(_ context.Context, examID string, refs []ImageRef, now time.Time) (*Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exams[examID]
	if !ok {
		return nil, apperror.NotFound("Exam not found")
	}
	e.Images = append([]ImageRef{}, refs...)
	e.UpdatedAt = now
	return cloneExam(e), nil
}

type memImageRepo struct {
	mu     sync.RWMutex
	images map[string]*Image
}

func NewMemoryImageRepo() ImageRepository {
	return &memImageRepo{images: make(map[string]*Image)}
}

func metadataOnly(img *Image) *Image {
	cp := *img
	cp.Content = nil
	cp.Tags = append([]string{}, img.Tags...)
	return &cp
}

func (r *memImageRepo) Create(_ context.Context, img *Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[img.ImageID]; ok {
		return apperror.DuplicateKey("image_id already exists")
	}
	cp := *img
	cp.Content = append([]byte(nil), img.Content...)
	cp.Tags = append([]string{}, img.Tags...)
	r.images[img.ImageID] = &cp
	return nil
}

func (r *memImageRepo) GetByID(_ context.Context, id string) (*Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.images[id]
	if !ok {
		return nil, apperror.NotFound("Image not found")
	}
	return metadataOnly(img), nil
}

func (r *memImageRepo) GetWithContent(_ context.Context, id string) (*Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.images[id]
	if !ok {
		return nil, apperror.NotFound("Image not found")
	}
	cp := metadataOnly(img)
	cp.Content = img.Content
	return cp, nil
}

func (r *memImageRepo) matching(f ImageFilter) []*Image {
	items := []*Image{}
	for _, img := range r.images {
		if f.PatientID != "" && deref(img.PatientID) != f.PatientID {
			continue
		}
		if f.ExamID != "" && deref(img.ExamID) != f.ExamID {
			continue
		}
		items = append(items, metadataOnly(img))
	}
	return items
}

func (r *memImageRepo) List(_ context.Context, f ImageFilter, limit, offset int) ([]*Image, error) {
	r.mu.RLock()
	items := r.matching(f)
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ImageID < items[j].ImageID
	})
	return page(items, limit, offset), nil
}

func (r *memImageRepo) RefsByExam(_ context.Context, examID string) ([]ImageRef, error) {
	r.mu.RLock()
	items := r.matching(ImageFilter{ExamID: examID})
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ImageID < items[j].ImageID
	})
	refs := make([]ImageRef, len(items))
	for i, img := range items {
		refs[i] = img.Ref()
	}
	return refs, nil
}

func (r *memImageRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[id]; !ok {
		return apperror.NotFound("Image not found")
	}
	delete(r.images, id)
	return nil
}

func (r *memImageRepo) deleteWhere(match func(*Image) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, img := range r.images {
		if match(img) {
			delete(r.images, id)
			n++
		}
	}
	return n
}

func (r *memImageRepo) DeleteByPatient(_ context.Context, patientID string) (int64, error) {
	return r.deleteWhere(func(img *Image) bool { return deref(img.PatientID) == patientID }), nil
}

func (r *memImageRepo) DeleteByExam(_ context.Context, examID string) (int64, error) {
	return r.deleteWhere(func(img *Image) bool { return deref(img.ExamID) == examID }), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
