package content

import (
	"bytes"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// DICOMMeta is the small descriptive record kept for DICOM uploads. It holds
// either the extracted tags or {"parse_error": true}.
type DICOMMeta map[string]any

// ParseFailed reports whether m is the parse-error sentinel.
func (m DICOMMeta) ParseFailed() bool {
	v, _ := m["parse_error"].(bool)
	return v
}

var dicomFields = []struct {
	key    string
	tag    tag.Tag
	maxLen int
}{
	{"PatientName", tag.PatientName, 200},
	{"StudyDate", tag.StudyDate, 32},
	{"Modality", tag.Modality, 32},
	{"SOPClassUID", tag.SOPClassUID, 80},
}

// ExtractDICOMTags parses data leniently and returns the four descriptive
// tags. It never fails: any parse problem yields the parse-error sentinel.
func ExtractDICOMTags(data []byte) (meta DICOMMeta) {
	defer func() {
		if r := recover(); r != nil {
			meta = parseErrorMeta()
		}
	}()

	ds, err := parseDICOM(data)
	if err != nil {
		return parseErrorMeta()
	}
	return metaFromDataset(ds)
}

// parseDICOM tries a regular Part 10 parse first, then falls back to reading
// the bytes as a bare dataset without the preamble and file meta group. A
// truncated file keeps the elements read before the cut.
func parseDICOM(data []byte) (dicom.Dataset, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
	if err == nil || len(ds.Elements) > 0 {
		return ds, nil
	}
	bare, ferr := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil,
		dicom.SkipPixelData(), dicom.SkipMetadataReadOnNewParserInit())
	if ferr == nil && len(bare.Elements) > 0 {
		return bare, nil
	}
	// Without a preamble, only trust a partial read that reached a known tag.
	if ferr != nil && hasDescriptiveTag(&bare) {
		return bare, nil
	}
	return dicom.Dataset{}, err
}

func hasDescriptiveTag(ds *dicom.Dataset) bool {
	for _, f := range dicomFields {
		if elem, err := ds.FindElementByTag(f.tag); err == nil && elem != nil {
			return true
		}
	}
	return false
}

func metaFromDataset(ds dicom.Dataset) DICOMMeta {
	meta := make(DICOMMeta, len(dicomFields))
	for _, f := range dicomFields {
		meta[f.key] = truncate(elementString(&ds, f.tag), f.maxLen)
	}
	return meta
}

func elementString(ds *dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return ""
	}
	if strs, ok := elem.Value.GetValue().([]string); ok {
		// UIs are padded with NUL, other strings with spaces.
		return strings.Trim(strings.Join(strs, "\\"), " \x00")
	}
	return elem.Value.String()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}

func parseErrorMeta() DICOMMeta {
	return DICOMMeta{"parse_error": true}
}
