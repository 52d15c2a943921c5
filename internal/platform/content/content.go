// Package content handles uploaded binary content: size guarding, hashing,
// kind classification and best-effort DICOM tag extraction.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/tvusvet/backend/pkg/apperror"
)

// MaxImageSize is the largest accepted image upload (50 MiB).
const MaxImageSize = 50 * 1024 * 1024

// DefaultMIMEType is recorded when the client declares none.
const DefaultMIMEType = "application/octet-stream"

// Blob is fully-read upload content.
type Blob struct {
	Data   []byte
	Size   int64
	SHA256 string
}

// Read consumes r up to max bytes. Zero bytes is EmptyInput and anything
// beyond max is PayloadTooLarge.
func Read(r io.Reader, max int64) (*Blob, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		if apperror.KindOf(err) == apperror.KindPayloadTooLarge {
			return nil, err
		}
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if len(data) == 0 {
		return nil, apperror.EmptyInput("Empty file")
	}
	if int64(len(data)) > max {
		return nil, apperror.PayloadTooLarge(fmt.Sprintf("File too large (max %dMB)", max/(1024*1024)))
	}
	return &Blob{Data: data, Size: int64(len(data)), SHA256: Digest(data)}, nil
}

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
