package catalog

import (
	"strconv"

	"github.com/go-faster/errors"
)

// FetchError is the single failure kind of a fetch operation. Its message is
// static; the underlying cause is only reachable through errors.Unwrap.
type FetchError struct {
	msg   string
	cause error
}

// Sentinels matched with errors.Is.
var (
	ErrProductDetails = &FetchError{msg: "Failed to load product details"}
	ErrOtherProducts  = &FetchError{msg: "Failed to load other products"}
)

func (e *FetchError) Error() string { return e.msg }

func (e *FetchError) Unwrap() error { return e.cause }

// Is reports whether target is a FetchError of the same kind.
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	return ok && t.msg == e.msg
}

func fetchFailed(kind *FetchError, cause error) error {
	return &FetchError{msg: kind.msg, cause: cause}
}

// StatusError records a non-200 upstream response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.Code)
}

// ErrMissingData is returned when the response envelope has no data field.
var ErrMissingData = errors.New("envelope has no data field")
