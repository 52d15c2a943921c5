package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tvusvet/backend/pkg/apperror"
)

const uniqueViolation = "23505"

// TranslateError maps pgx errors onto the application error kinds. notFound
// is the message used for pgx.ErrNoRows.
func TranslateError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperror.Wrap(apperror.KindDuplicateKey, "duplicate key", err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.StorageUnavailable(err)
	}
	return apperror.Internal("postgres operation failed", err)
}

// EscapeLike escapes the LIKE metacharacters in s so it matches literally
// with the default backslash escape.
func EscapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
