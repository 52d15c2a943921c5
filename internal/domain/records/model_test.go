package records

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvusvet/backend/pkg/apperror"
)

func TestExamInput_Defaults(t *testing.T) {
	in := ExamInput{PatientID: "pat_1"}
	require.NoError(t, in.Validate())
	assert.Equal(t, DefaultExamType, in.ExamType)
	assert.Equal(t, ExamStatusDraft, in.Status)
	assert.NotNil(t, in.OrgansData)
}

func TestExamInput_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   ExamInput
	}{
		{"missing patient", ExamInput{}},
		{"bad status", ExamInput{PatientID: "pat_1", Status: "done"}},
		{"long exam type", ExamInput{PatientID: "pat_1", ExamType: strings.Repeat("a", 81)}},
		{"long notes", ExamInput{PatientID: "pat_1", Notes: strPtr(strings.Repeat("a", 10001))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertKind(t, tt.in.Validate(), apperror.KindValidation)
		})
	}
}

func TestPatientPatch_Validate(t *testing.T) {
	assert.NoError(t, (&PatientPatch{}).Validate(), "empty patch is valid")
	assert.Error(t, (&PatientPatch{Name: strPtr("")}).Validate())
	assert.Error(t, (&PatientPatch{Notes: strPtr(strings.Repeat("n", 4001))}).Validate())
	// Length is counted in characters, not bytes.
	assert.NoError(t, (&PatientPatch{Species: strPtr(strings.Repeat("ç", 80))}).Validate())
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseTags(" a, b ,,c ,"))

	empty := ParseTags("")
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestImage_Ref(t *testing.T) {
	now := time.Now()
	img := &Image{ImageID: "img_1", Filename: "a.png", MIMEType: "image/png", SizeBytes: 3, CreatedAt: now}
	ref := img.Ref()
	assert.Equal(t, "img_1", ref.ImageID)
	assert.Equal(t, "a.png", ref.Filename)
	assert.Equal(t, int64(3), ref.SizeBytes)
	assert.True(t, ref.CreatedAt.Equal(now))
	assert.NotNil(t, ref.Tags)
}
