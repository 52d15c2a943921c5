package content

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/tvusvet/backend/pkg/apperror"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mime     string
		want     Kind
	}{
		{"dcm extension beats octet-stream", "x.dcm", "application/octet-stream", KindDICOM},
		{"dicom mime", "scan.bin", "application/dicom", KindDICOM},
		{"dicom mime wins over png extension", "x.png", "application/DICOM", KindDICOM},
		{"uppercase dcm", "STUDY.DCM", "", KindDICOM},
		{"png extension", "liver.png", "application/octet-stream", KindPNG},
		{"png mime only", "liver", "image/png", KindPNG},
		{"jpg extension", "x.jpg", "image/jpeg", KindJPG},
		{"jpeg extension", "x.jpeg", "image/jpeg", KindJPEG},
		{"jpeg mime only", "blob", "image/jpeg", KindJPEG},
		{"jpg mime only", "blob", "image/jpg", KindJPEG},
		{"png extension beats jpeg mime", "x.png", "image/jpeg", KindPNG},
		{"other", "report.pdf", "application/pdf", KindOther},
		{"empty", "", "", KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.filename, tt.mime); got != tt.want {
				t.Errorf("Classify(%q, %q) = %s, want %s", tt.filename, tt.mime, got, tt.want)
			}
		})
	}
}

func TestRead(t *testing.T) {
	blob, err := Read(strings.NewReader("abc"), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blob.Size != 3 {
		t.Errorf("expected size 3, got %d", blob.Size)
	}
	if blob.SHA256 != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("unexpected digest %s", blob.SHA256)
	}
	if string(blob.Data) != "abc" {
		t.Errorf("unexpected data %q", blob.Data)
	}
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(bytes.NewReader(nil), 10)
	if !apperror.IsKind(err, apperror.KindEmptyInput) {
		t.Errorf("expected empty input, got %v", err)
	}
}

func TestRead_TooLarge(t *testing.T) {
	_, err := Read(bytes.NewReader(make([]byte, 11)), 10)
	if !apperror.IsKind(err, apperror.KindPayloadTooLarge) {
		t.Errorf("expected payload too large, got %v", err)
	}

	blob, err := Read(bytes.NewReader(make([]byte, 10)), 10)
	if err != nil {
		t.Fatalf("exactly the limit must be accepted: %v", err)
	}
	if blob.Size != 10 {
		t.Errorf("expected size 10, got %d", blob.Size)
	}
}

func TestExtractDICOMTags_Garbage(t *testing.T) {
	meta := ExtractDICOMTags([]byte{0x01, 0x02, 0x03})
	if !reflect.DeepEqual(meta, DICOMMeta{"parse_error": true}) {
		t.Errorf("expected parse_error sentinel, got %v", meta)
	}
}

func mustElement(t *testing.T, tg tag.Tag, value any) *dicom.Element {
	t.Helper()
	elem, err := dicom.NewElement(tg, value)
	if err != nil {
		t.Fatalf("new element %v: %v", tg, err)
	}
	return elem
}

// writePart10 encodes a small explicit-VR little endian file whose last
// element is BodyPartExamined.
func writePart10(t *testing.T) []byte {
	t.Helper()
	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustElement(t, tag.FileMetaInformationVersion, []byte{0x00, 0x01}),
		mustElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.6.1"}),
		mustElement(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5"}),
		mustElement(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustElement(t, tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.6.1"}),
		mustElement(t, tag.StudyDate, []string{"20240101"}),
		mustElement(t, tag.Modality, []string{"US"}),
		mustElement(t, tag.PatientName, []string{"Rex^Lab"}),
		mustElement(t, tag.BodyPartExamined, []string{"ABDOMEN"}),
	}}
	var buf bytes.Buffer
	if err := dicom.Write(&buf, ds); err != nil {
		t.Fatalf("write dicom: %v", err)
	}
	return buf.Bytes()
}

var part10Tags = DICOMMeta{
	"PatientName": "Rex^Lab",
	"StudyDate":   "20240101",
	"Modality":    "US",
	"SOPClassUID": "1.2.840.10008.5.1.4.1.1.6.1",
}

func TestExtractDICOMTags_Part10(t *testing.T) {
	meta := ExtractDICOMTags(writePart10(t))
	if !reflect.DeepEqual(meta, part10Tags) {
		t.Errorf("got %v, want %v", meta, part10Tags)
	}
}

func TestExtractDICOMTags_TruncatedKeepsReadTags(t *testing.T) {
	data := writePart10(t)
	meta := ExtractDICOMTags(data[:len(data)-3])

	if meta.ParseFailed() {
		t.Fatal("tags read before the cut must be kept")
	}
	if !reflect.DeepEqual(meta, part10Tags) {
		t.Errorf("got %v, want %v", meta, part10Tags)
	}
}

func TestMetaFromDataset(t *testing.T) {
	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustElement(t, tag.PatientName, []string{"Rex^Labrador"}),
		mustElement(t, tag.Modality, []string{"US"}),
		mustElement(t, tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.6.1"}),
	}}

	want := DICOMMeta{
		"PatientName": "Rex^Labrador",
		"StudyDate":   "",
		"Modality":    "US",
		"SOPClassUID": "1.2.840.10008.5.1.4.1.1.6.1",
	}
	if got := metaFromDataset(ds); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMetaFromDataset_Truncates(t *testing.T) {
	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustElement(t, tag.PatientName, []string{strings.Repeat("A", 300)}),
	}}
	if got := metaFromDataset(ds)["PatientName"].(string); len(got) != 200 {
		t.Errorf("expected 200 characters, got %d", len(got))
	}
}

func TestTruncate_Runes(t *testing.T) {
	if got := truncate("fígado", 3); got != "fíg" {
		t.Errorf("expected fíg, got %q", got)
	}
	if got := truncate("US", 32); got != "US" {
		t.Errorf("expected US, got %q", got)
	}
}
