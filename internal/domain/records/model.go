package records

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tvusvet/backend/internal/platform/content"
	"github.com/tvusvet/backend/pkg/apperror"
)

const (
	DefaultExamType = "ultrasound_abd"

	ExamStatusDraft = "draft"
	ExamStatusFinal = "final"
)

// Patient is the root of the patient -> exams -> images cascade.
type Patient struct {
	PatientID string    `json:"patient_id" bson:"patient_id"`
	Name      string    `json:"name" bson:"name"`
	Species   *string   `json:"species" bson:"species"`
	OwnerName *string   `json:"owner_name" bson:"owner_name"`
	Notes     *string   `json:"notes" bson:"notes"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// OrganFinding is one free-form record of an exam's structured findings.
type OrganFinding map[string]any

// ImageRef is the summary of an image embedded in its exam.
type ImageRef struct {
	ImageID   string    `json:"image_id" bson:"image_id"`
	Filename  string    `json:"filename" bson:"filename"`
	MIMEType  string    `json:"mime_type" bson:"mime_type"`
	SizeBytes int64     `json:"size_bytes" bson:"size_bytes"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Tags      []string  `json:"tags" bson:"tags"`
}

// Exam belongs to exactly one patient and carries the summaries of its images.
type Exam struct {
	ExamID     string         `json:"exam_id" bson:"exam_id"`
	PatientID  string         `json:"patient_id" bson:"patient_id"`
	ExamType   string         `json:"exam_type" bson:"exam_type"`
	ExamDate   *time.Time     `json:"exam_date" bson:"exam_date"`
	Date       time.Time      `json:"date" bson:"date"`
	Status     string         `json:"status" bson:"status"`
	OrgansData []OrganFinding `json:"organs_data" bson:"organs_data"`
	Notes      *string        `json:"notes" bson:"notes"`
	Images     []ImageRef     `json:"images" bson:"images"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" bson:"updated_at"`
}

// Image is an uploaded file. Content is never serialized to JSON.
type Image struct {
	ImageID   string            `json:"image_id" bson:"image_id"`
	Filename  string            `json:"filename" bson:"filename"`
	MIMEType  string            `json:"mime_type" bson:"mime_type"`
	SizeBytes int64             `json:"size_bytes" bson:"size_bytes"`
	SHA256    string            `json:"sha256" bson:"sha256"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at"`
	Tags      []string          `json:"tags" bson:"tags"`
	PatientID *string           `json:"patient_id" bson:"patient_id"`
	ExamID    *string           `json:"exam_id" bson:"exam_id"`
	Kind      content.Kind      `json:"kind" bson:"kind"`
	DICOMMeta content.DICOMMeta `json:"dicom_meta" bson:"dicom_meta"`
	Content   []byte            `json:"-" bson:"content,omitempty"`
}

// Ref builds the summary embedded in the image's exam.
func (img *Image) Ref() ImageRef {
	tags := img.Tags
	if tags == nil {
		tags = []string{}
	}
	return ImageRef{
		ImageID:   img.ImageID,
		Filename:  img.Filename,
		MIMEType:  img.MIMEType,
		SizeBytes: img.SizeBytes,
		CreatedAt: img.CreatedAt,
		Tags:      tags,
	}
}

// PatientInput is the body of POST /api/patients.
type PatientInput struct {
	Name      string  `json:"name"`
	Species   *string `json:"species"`
	OwnerName *string `json:"owner_name"`
	Notes     *string `json:"notes"`
}

func (in *PatientInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperror.Validation("name is required")
	}
	return firstErr(
		maxLen("name", &in.Name, 200),
		maxLen("species", in.Species, 80),
		maxLen("owner_name", in.OwnerName, 200),
		maxLen("notes", in.Notes, 4000),
	)
}

// PatientPatch is the body of PATCH /api/patients/{id}. Nil fields are left
// untouched.
type PatientPatch struct {
	Name      *string `json:"name"`
	Species   *string `json:"species"`
	OwnerName *string `json:"owner_name"`
	Notes     *string `json:"notes"`
}

func (p *PatientPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperror.Validation("name must not be empty")
	}
	return firstErr(
		maxLen("name", p.Name, 200),
		maxLen("species", p.Species, 80),
		maxLen("owner_name", p.OwnerName, 200),
		maxLen("notes", p.Notes, 4000),
	)
}

// ExamInput is the body of POST /api/exams.
type ExamInput struct {
	PatientID  string         `json:"patient_id"`
	ExamType   string         `json:"exam_type"`
	ExamDate   *time.Time     `json:"exam_date"`
	Status     string         `json:"status"`
	OrgansData []OrganFinding `json:"organs_data"`
	Notes      *string        `json:"notes"`
}

// Validate checks the input and fills in defaults.
func (in *ExamInput) Validate() error {
	if strings.TrimSpace(in.PatientID) == "" {
		return apperror.Validation("patient_id is required")
	}
	if in.ExamType == "" {
		in.ExamType = DefaultExamType
	}
	if in.Status == "" {
		in.Status = ExamStatusDraft
	}
	if in.OrgansData == nil {
		in.OrgansData = []OrganFinding{}
	}
	return firstErr(
		validStatus(&in.Status),
		maxLen("exam_type", &in.ExamType, 80),
		maxLen("notes", in.Notes, 10000),
	)
}

// ExamPatch is the body of PATCH /api/exams/{id}.
type ExamPatch struct {
	ExamType   *string        `json:"exam_type"`
	ExamDate   *time.Time     `json:"exam_date"`
	Status     *string        `json:"status"`
	OrgansData []OrganFinding `json:"organs_data"`
	Notes      *string        `json:"notes"`
}

func (p *ExamPatch) Validate() error {
	return firstErr(
		validStatus(p.Status),
		maxLen("exam_type", p.ExamType, 80),
		maxLen("notes", p.Notes, 10000),
	)
}

// ImageUpload describes one POST /api/images request.
type ImageUpload struct {
	Filename  string
	MIMEType  string
	PatientID string
	ExamID    string
	Tags      []string
}

// ParseTags splits a comma-separated tag list, trimming blanks.
func ParseTags(csv string) []string {
	tags := []string{}
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// PatientFilter narrows patient listings. Query matches name or owner_name.
type PatientFilter struct {
	Query string
}

type ExamFilter struct {
	PatientID string
}

type ImageFilter struct {
	PatientID string
	ExamID    string
}

func validStatus(s *string) error {
	if s == nil {
		return nil
	}
	if *s != ExamStatusDraft && *s != ExamStatusFinal {
		return apperror.Validation(fmt.Sprintf("invalid status: %s", *s))
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
