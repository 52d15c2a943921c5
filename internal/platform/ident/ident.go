// Package ident generates the opaque, kind-prefixed identifiers used for
// every stored entity.
package ident

import (
	"encoding/hex"

	"github.com/google/uuid"
)

const (
	PatientPrefix  = "pat"
	ExamPrefix     = "exam"
	ImagePrefix    = "img"
	TemplatePrefix = "tpl"
)

// New returns "<prefix>_<32 hex chars>" built from a random (v4) UUID.
func New(prefix string) string {
	u := uuid.New()
	return prefix + "_" + hex.EncodeToString(u[:])
}
