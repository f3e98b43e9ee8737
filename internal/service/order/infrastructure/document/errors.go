package document

import "github.com/pkg/errors"

func wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, "redis: "+format, args...)
}
