package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tvusvet/backend/pkg/apperror"
)

// TranslateError maps driver errors onto the application error kinds.
// notFound is the message used for mongo.ErrNoDocuments.
func TranslateError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperror.NotFound(notFound)
	case mongo.IsDuplicateKeyError(err):
		return apperror.Wrap(apperror.KindDuplicateKey, "duplicate key", err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return apperror.StorageUnavailable(err)
	default:
		return apperror.Internal("mongodb operation failed", err)
	}
}
