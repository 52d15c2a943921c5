package records

import (
	"context"
	"io"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/tvusvet/backend/internal/platform/content"
	"github.com/tvusvet/backend/internal/platform/ident"
	"github.com/tvusvet/backend/pkg/apperror"
	"github.com/tvusvet/backend/pkg/pagination"
)

// Service keeps the patient, exam and image collections consistent with each
// other. It owns the image summaries embedded in exams.
type Service struct {
	patients PatientRepository
	exams    ExamRepository
	images   ImageRepository
	log      zerolog.Logger
	now      func() time.Time
	maxImage int64
}

func NewService(patients PatientRepository, exams ExamRepository, images ImageRepository, log zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		exams:    exams,
		images:   images,
		log:      log.With().Str("component", "records").Logger(),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		maxImage: content.MaxImageSize,
	}
}

// DeleteResult is returned by the cascade deletes.
type DeleteResult struct {
	Deleted      bool   `json:"deleted"`
	PatientID    string `json:"patient_id,omitempty"`
	ExamID       string `json:"exam_id,omitempty"`
	ImageID      string `json:"image_id,omitempty"`
	ExamsDeleted *int64 `json:"exams_deleted,omitempty"`
}

// -- Patients --

func (s *Service) CreatePatient(ctx context.Context, in PatientInput) (*Patient, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	p := &Patient{
		PatientID: ident.New(ident.PatientPrefix),
		Name:      in.Name,
		Species:   in.Species,
		OwnerName: in.OwnerName,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, f PatientFilter, pg pagination.Params) ([]*Patient, error) {
	return s.patients.List(ctx, f, pg.Limit, pg.Offset)
}

func (s *Service) UpdatePatient(ctx context.Context, id string, patch PatientPatch) (*Patient, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return s.patients.Update(ctx, id, patch, s.now())
}

// DeletePatient removes the patient's images, then its exams, then the
// patient itself. Every step runs even when the patient is already gone, so a
// retry finishes an interrupted cascade.
func (s *Service) DeletePatient(ctx context.Context, id string) (*DeleteResult, error) {
	examIDs, err := s.exams.IDsByPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	imagesDeleted, err := s.images.DeleteByPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	// Images linked only through an exam still go with it.
	for _, examID := range examIDs {
		n, err := s.images.DeleteByExam(ctx, examID)
		if err != nil {
			return nil, err
		}
		imagesDeleted += n
	}
	examsDeleted, err := s.exams.DeleteByPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.patients.Delete(ctx, id); err != nil && !apperror.IsKind(err, apperror.KindNotFound) {
		return nil, err
	}

	s.log.Info().
		Str("patient_id", id).
		Int64("exams_deleted", examsDeleted).
		Int64("images_deleted", imagesDeleted).
		Msg("patient deleted")
	return &DeleteResult{Deleted: true, PatientID: id, ExamsDeleted: &examsDeleted}, nil
}

// -- Exams --

func (s *Service) CreateExam(ctx context.Context, in ExamInput) (*Exam, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.requirePatient(ctx, in.PatientID); err != nil {
		return nil, err
	}

	now := s.now()
	e := &Exam{
		ExamID:     ident.New(ident.ExamPrefix),
		PatientID:  in.PatientID,
		ExamType:   in.ExamType,
		ExamDate:   in.ExamDate,
		Date:       now,
		Status:     in.Status,
		OrgansData: in.OrgansData,
		Notes:      in.Notes,
		Images:     []ImageRef{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.ExamDate != nil {
		e.Date = *in.ExamDate
	}
	if err := s.exams.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetExam(ctx context.Context, id string) (*Exam, error) {
	return s.exams.GetByID(ctx, id)
}

func (s *Service) ListExams(ctx context.Context, f ExamFilter, pg pagination.Params) ([]*Exam, error) {
	return s.exams.List(ctx, f, pg.Limit, pg.Offset)
}

func (s *Service) UpdateExam(ctx context.Context, id string, patch ExamPatch) (*Exam, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return s.exams.Update(ctx, id, patch, s.now())
}

// DeleteExam destroys the exam's images and then the exam.
func (s *Service) DeleteExam(ctx context.Context, id string) (*DeleteResult, error) {
	if _, err := s.exams.GetByID(ctx, id); err != nil {
		return nil, err
	}
	n, err := s.images.DeleteByExam(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.exams.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.log.Info().Str("exam_id", id).Int64("images_deleted", n).Msg("exam deleted")
	return &DeleteResult{Deleted: true, ExamID: id}, nil
}

// -- Images --

// resolveImageRefs validates the exam and patient references of an upload
// and returns the effective patient id.
func (s *Service) resolveImageRefs(ctx context.Context, patientID, examID string) (string, error) {
	if examID != "" {
		exam, err := s.exams.GetByID(ctx, examID)
		if err != nil {
			if apperror.IsKind(err, apperror.KindNotFound) {
				return "", apperror.InvalidReference("Invalid exam_id")
			}
			return "", err
		}
		if patientID != "" && patientID != exam.PatientID {
			return "", apperror.ReferenceConflict("patient_id does not match exam.patient_id")
		}
		patientID = exam.PatientID
	}
	if patientID != "" {
		if err := s.requirePatient(ctx, patientID); err != nil {
			return "", err
		}
	}
	return patientID, nil
}

// UploadImage stores a new image. References are checked before the content
// is read. The image is written first and then linked to its exam; a failed
// link leaves the image in place and is repaired by ReconcileExamImages.
func (s *Service) UploadImage(ctx context.Context, up ImageUpload, r io.Reader) (*Image, error) {
	patientID, err := s.resolveImageRefs(ctx, up.PatientID, up.ExamID)
	if err != nil {
		return nil, err
	}

	blob, err := content.Read(r, s.maxImage)
	if err != nil {
		return nil, err
	}

	now := s.now()
	img := &Image{
		ImageID:   ident.New(ident.ImagePrefix),
		Filename:  up.Filename,
		MIMEType:  up.MIMEType,
		SizeBytes: blob.Size,
		SHA256:    blob.SHA256,
		CreatedAt: now,
		UpdatedAt: now,
		Tags:      up.Tags,
		Content:   blob.Data,
	}
	if img.Filename == "" {
		img.Filename = img.ImageID
	}
	if img.MIMEType == "" {
		img.MIMEType = content.DefaultMIMEType
	}
	if img.Tags == nil {
		img.Tags = []string{}
	}
	if patientID != "" {
		img.PatientID = &patientID
	}
	if up.ExamID != "" {
		examID := up.ExamID
		img.ExamID = &examID
	}
	img.Kind = content.Classify(img.Filename, img.MIMEType)
	if img.Kind == content.KindDICOM {
		img.DICOMMeta = content.ExtractDICOMTags(blob.Data)
		if img.DICOMMeta.ParseFailed() {
			s.log.Warn().Str("image_id", img.ImageID).Msg("dicom metadata unreadable")
		}
	}

	if err := s.images.Create(ctx, img); err != nil {
		return nil, err
	}
	if img.ExamID != nil {
		err := s.exams.AttachImage(ctx, *img.ExamID, img.Ref(), now)
		switch {
		case apperror.IsKind(err, apperror.KindNotFound):
			// Exam deleted after the reference check; nothing to link to.
			s.log.Warn().
				Str("image_id", img.ImageID).
				Str("exam_id", *img.ExamID).
				Msg("exam gone before image link")
		case err != nil:
			s.log.Error().Err(err).
				Str("image_id", img.ImageID).
				Str("exam_id", *img.ExamID).
				Msg("image stored but not linked to exam")
			return nil, err
		}
	}

	s.log.Debug().
		Str("image_id", img.ImageID).
		Str("kind", string(img.Kind)).
		Int64("size_bytes", img.SizeBytes).
		Msg("image uploaded")
	img.Content = nil
	return img, nil
}

func (s *Service) GetImage(ctx context.Context, id string) (*Image, error) {
	return s.images.GetByID(ctx, id)
}

// GetImageContent returns the image including its bytes.
func (s *Service) GetImageContent(ctx context.Context, id string) (*Image, error) {
	return s.images.GetWithContent(ctx, id)
}

func (s *Service) ListImages(ctx context.Context, f ImageFilter, pg pagination.Params) ([]*Image, error) {
	return s.images.List(ctx, f, pg.Limit, pg.Offset)
}

// DeleteImage removes the image and detaches its summary from its exam. A
// missing exam is not an error.
func (s *Service) DeleteImage(ctx context.Context, id string) (*DeleteResult, error) {
	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.images.Delete(ctx, id); err != nil {
		return nil, err
	}
	if img.ExamID != nil {
		if err := s.exams.DetachImage(ctx, *img.ExamID, id, s.now()); err != nil {
			return nil, err
		}
	}
	return &DeleteResult{Deleted: true, ImageID: id}, nil
}

// -- Reconciliation --

// ReconcileExamImages rebuilds the exam's embedded image list from the images
// that point at it.
func (s *Service) ReconcileExamImages(ctx context.Context, examID string) (*Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	_, updated, err := s.reconcile(ctx, exam)
	return updated, err
}

func (s *Service) reconcile(ctx context.Context, exam *Exam) (bool, *Exam, error) {
	refs, err := s.images.RefsByExam(ctx, exam.ExamID)
	if err != nil {
		return false, nil, err
	}
	if sameRefs(exam.Images, refs) {
		return false, exam, nil
	}
	updated, err := s.exams.ReplaceImages(ctx, exam.ExamID, refs, s.now())
	if err != nil {
		return false, nil, err
	}
	s.log.Info().
		Str("exam_id", exam.ExamID).
		Int("before", len(exam.Images)).
		Int("after", len(refs)).
		Msg("exam image list repaired")
	return true, updated, nil
}

// ReconcileAll repairs every exam page by page and returns how many exams
// changed.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	changed := 0
	pg := pagination.Normalize(pagination.MaxLimit, 0)
	for {
		exams, err := s.exams.List(ctx, ExamFilter{}, pg.Limit, pg.Offset)
		if err != nil {
			return changed, err
		}
		for _, e := range exams {
			ok, _, err := s.reconcile(ctx, e)
			if err != nil {
				return changed, err
			}
			if ok {
				changed++
			}
		}
		if len(exams) < pg.Limit {
			return changed, nil
		}
		pg = pg.Next()
	}
}

func (s *Service) requirePatient(ctx context.Context, id string) error {
	if _, err := s.patients.GetByID(ctx, id); err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return apperror.InvalidReference("Invalid patient_id")
		}
		return err
	}
	return nil
}

func sameRefs(a, b []ImageRef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ImageID != b[i].ImageID ||
			a[i].Filename != b[i].Filename ||
			a[i].MIMEType != b[i].MIMEType ||
			a[i].SizeBytes != b[i].SizeBytes ||
			!a[i].CreatedAt.Equal(b[i].CreatedAt) ||
			!reflect.DeepEqual(nonNil(a[i].Tags), nonNil(b[i].Tags)) {
			return false
		}
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
