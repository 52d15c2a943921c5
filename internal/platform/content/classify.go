package content

import "strings"

// Kind is the coarse classification of an uploaded image.
type Kind string

const (
	KindPNG   Kind = "png"
	KindJPG   Kind = "jpg"
	KindJPEG  Kind = "jpeg"
	KindDICOM Kind = "dicom"
	KindOther Kind = "other"
)

// Classify decides the kind from the filename extension and the declared
// MIME type. DICOM wins over everything, then PNG, then JPEG. The jpg/jpeg
// split follows the extension; a MIME-only JPEG match is "jpeg".
func Classify(filename, mime string) Kind {
	name := strings.ToLower(filename)
	lowMIME := strings.ToLower(mime)

	if strings.Contains(lowMIME, "dicom") || strings.HasSuffix(name, ".dcm") {
		return KindDICOM
	}
	if strings.HasSuffix(name, ".png") || mime == "image/png" {
		return KindPNG
	}
	if strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg") ||
		mime == "image/jpg" || mime == "image/jpeg" {
		if strings.HasSuffix(name, ".jpg") {
			return KindJPG
		}
		return KindJPEG
	}
	return KindOther
}
