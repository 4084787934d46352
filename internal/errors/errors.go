package errors

import (
	"errors"
)

// indicates an unrecoverable error
var ErrPermanentFailure = errors.New("permanent failure, do not retry")

// the upload does not start with the %PDF magic number
var ErrInvalidPDF = errors.New("not a valid PDF file (missing PDF header)")

// extraction succeeded but produced no text, the PDF might be image-based or encrypted
var ErrNoText = errors.New("no text could be extracted")

var ErrJobNotFound = errors.New("job not found")

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanentFailure) ||
		errors.Is(err, ErrInvalidPDF) ||
		errors.Is(err, ErrJobNotFound)
}
