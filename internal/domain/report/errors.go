package report

import "errors"

// Sentinel kinds for report validation. A *ValidationError unwraps to one of these.
var (
	ErrInvalidReport             = errors.New("invalid report")
	ErrMissingField              = errors.New("missing field")
	ErrNotANumber                = errors.New("not a whole number")
	ErrNegative                  = errors.New("negative count")
	ErrInvalidDate               = errors.New("invalid date")
	ErrRegisteredExceedsTotal    = errors.New("registered exceeds total")
	ErrEnrolledExceedsRegistered = errors.New("enrolled exceeds registered")
)

// ValidationError describes the first rule a submission broke. Msg is safe to
// show to the person who submitted the report.
type ValidationError struct {
	Field string
	Kind  error
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return e.Kind }

func invalid(field string, kind error, msg string) *ValidationError {
	return &ValidationError{Field: field, Kind: kind, Msg: msg}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
