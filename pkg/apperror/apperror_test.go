package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{InvalidReference("Invalid patient_id"), http.StatusBadRequest},
		{ReferenceConflict("mismatch"), http.StatusBadRequest},
		{DuplicateKey("dup"), http.StatusBadRequest},
		{NotFound("Patient not found"), http.StatusNotFound},
		{EmptyInput("Empty file"), http.StatusBadRequest},
		{PayloadTooLarge("too large"), http.StatusBadRequest},
		{Validation("name is required"), http.StatusBadRequest},
		{StorageUnavailable(errors.New("dial tcp")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("create exam: %w", InvalidReference("Invalid patient_id"))
	if KindOf(err) != KindInvalidReference {
		t.Errorf("expected INVALID_REFERENCE, got %s", KindOf(err))
	}
	if !IsKind(err, KindInvalidReference) {
		t.Error("expected IsKind to see through fmt wrapping")
	}
	if Message(err) != "Invalid patient_id" {
		t.Errorf("unexpected message %q", Message(err))
	}
}

func TestMessage_HidesInternalCause(t *testing.T) {
	err := Internal("query exams", errors.New("connection reset by peer"))
	if Message(err) != "internal server error" {
		t.Errorf("expected generic message, got %q", Message(err))
	}
	if !errors.Is(err, err.Err) {
		t.Error("expected Unwrap to expose the cause")
	}
}
