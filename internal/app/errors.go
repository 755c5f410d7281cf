package app

import (
	"errors"
	"fmt"
)

var (
	// ErrThreadForbidden indicates a supplied thread id belongs to another user.
	ErrThreadForbidden = errors.New("thread forbidden")
	// ErrInvalidEncoding indicates a media payload was not valid base64.
	ErrInvalidEncoding = errors.New("invalid base64 payload")
	// ErrBadRequest marks caller-input validation failures. Handlers match it
	// with errors.Is; never classify by message text.
	ErrBadRequest = errors.New("invalid request")
)

func requiredError(field string) error {
	return fmt.Errorf("%w: %s required", ErrBadRequest, field)
}

// CNICParseError indicates the extraction model replied with something that
// is not the expected JSON document. Raw is exposed only on debug paths.
type CNICParseError struct {
	Raw string
	Err error
}

func (e *CNICParseError) Error() string {
	return fmt.Sprintf("parse cnic extraction: %v", e.Err)
}

func (e *CNICParseError) Unwrap() error {
	return e.Err
}
