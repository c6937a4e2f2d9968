package repository

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const duplicateKeyCode = 11000

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// translate maps driver errors onto the package sentinels and annotates the rest.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errors.Wrap(ErrNotFound, msg)
	}
	if onlyDuplicateKeys(err) {
		return errors.Wrap(ErrDuplicateKey, msg)
	}
	return errors.Wrap(err, msg)
}

// onlyDuplicateKeys reports whether every write failure in err is a unique index violation.
func onlyDuplicateKeys(err error) bool {
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		if bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
			return false
		}
		for _, we := range bwe.WriteErrors {
			if we.Code != duplicateKeyCode {
				return false
			}
		}
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}
