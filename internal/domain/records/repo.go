package records

import (
	"context"
	"time"
)

// PatientRepository stores patients keyed by patient_id.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	// List sorts by name ascending.
	List(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, error)
	// Update applies the patch atomically and returns the updated patient.
	Update(ctx context.Context, id string, patch PatientPatch, now time.Time) (*Patient, error)
	Delete(ctx context.Context, id string) error
}

// ExamRepository stores exams keyed by exam_id, including the embedded
// image summaries.
type ExamRepository interface {
	Create(ctx context.Context, e *Exam) error
	GetByID(ctx context.Context, id string) (*Exam, error)
	// List sorts by date descending.
	List(ctx context.Context, f ExamFilter, limit, offset int) ([]*Exam, error)
	Update(ctx context.Context, id string, patch ExamPatch, now time.Time) (*Exam, error)
	IDsByPatient(ctx context.Context, patientID string) ([]string, error)
	Delete(ctx context.Context, id string) error
	DeleteByPatient(ctx context.Context, patientID string) (int64, error)

	// AttachImage appends ref to the exam's image list.
	AttachImage(ctx context.Context, examID string, ref ImageRef, now time.Time) error
	// DetachImage removes every summary with imageID. A missing exam is not
	// an error.
	DetachImage(ctx context.Context, examID, imageID string, now time.Time) error
	// ReplaceImages overwrites the image list and returns the updated exam.
	ReplaceImages(ctx context.Context, examID string, refs []ImageRef, now time.Time) (*Exam, error)
}

// ImageRepository stores images and their binary content.
type ImageRepository interface {
	Create(ctx context.Context, img *Image) error
	// GetByID returns metadata only; Content is nil.
	GetByID(ctx context.Context, id string) (*Image, error)
	GetWithContent(ctx context.Context, id string) (*Image, error)
	// List returns metadata sorted by created_at descending.
	List(ctx context.Context, f ImageFilter, limit, offset int) ([]*Image, error)
	// RefsByExam returns summaries of the exam's images, oldest first.
	RefsByExam(ctx context.Context, examID string) ([]ImageRef, error)
	Delete(ctx context.Context, id string) error
	DeleteByPatient(ctx context.Context, patientID string) (int64, error)
	DeleteByExam(ctx context.Context, examID string) (int64, error)
}
