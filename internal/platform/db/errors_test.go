package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tvusvet/backend/pkg/apperror"
)

func TestTranslateError(t *testing.T) {
	if TranslateError(nil, "x") != nil {
		t.Fatal("expected nil for nil error")
	}

	err := TranslateError(pgx.ErrNoRows, "Exam not found")
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", apperror.KindOf(err))
	}
	if apperror.Message(err) != "Exam not found" {
		t.Errorf("unexpected message %q", apperror.Message(err))
	}

	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	if !apperror.IsKind(TranslateError(dup, "x"), apperror.KindDuplicateKey) {
		t.Error("expected DUPLICATE_KEY for SQLSTATE 23505")
	}

	other := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	if !apperror.IsKind(TranslateError(other, "x"), apperror.KindInternal) {
		t.Error("expected INTERNAL for other SQLSTATEs")
	}

	if !apperror.IsKind(TranslateError(errors.New("boom"), "x"), apperror.KindInternal) {
		t.Error("expected INTERNAL for unknown errors")
	}
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"rex":    "rex",
		"50%":    `50\%`,
		"a_b":    `a\_b`,
		`c:\dir`: `c:\\dir`,
		"fígado": "fígado",
	}
	for in, want := range tests {
		if got := EscapeLike(in); got != want {
			t.Errorf("EscapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}
