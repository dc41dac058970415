package persistence

import (
	"errors"

	"gorm.io/gorm"
)

// translate maps gorm.ErrRecordNotFound to the domain's not-found error and
// passes everything else through.
func translate(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
