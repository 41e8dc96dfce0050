package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert or update hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// ErrInUse is returned when a delete is blocked by dependent rows.
var ErrInUse = errors.New("record in use")

func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrDuplicate
		case pqForeignKeyViolation:
			return ErrInUse
		}
	}
	return err
}
