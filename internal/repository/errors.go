package repository

import (
	"errors"

	"gorm.io/gorm"
)

// translate maps gorm's not-found sentinel onto a domain error and passes
// everything else through.
func translate(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
