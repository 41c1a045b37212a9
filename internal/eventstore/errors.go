package eventstore

import (
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

func storeErr(err error, message string) error {
	return errors.WrapError(err, errors.CategoryEventStore, message).Build()
}
