package dbutil

import (
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	DuplicateKeyErrorCode        = "23505"
	SerializationFailureCode     = "40001"
	ForeignKeyViolationErrorCode = "23503"
)

// WrapError maps gorm and postgres errors onto the error kinds.
func WrapError(err error) error {
	var pgErr *pgconn.PgError

	if err == nil {
		return nil
	} else if _, ok := err.(*errors.Error); ok {
		return err
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound.Wrap(err)
	} else if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Conflict.Explain("duplication of key").Wrap(err)
	} else if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case DuplicateKeyErrorCode:
			return errors.Conflict.Explain("duplication of key").Wrap(err)
		case ForeignKeyViolationErrorCode:
			return errors.Invalid.Explain("referenced record does not exist").Wrap(err)
		case SerializationFailureCode:
			return errors.Conflict.Explain("concurrent update, retry").Wrap(err)
		}
	}

	return err
}
