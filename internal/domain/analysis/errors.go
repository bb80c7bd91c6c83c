package analysis

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")

	ErrEmptyResponse    = errors.New("no content in response")
	ErrNoJSONFound      = errors.New("no valid JSON found in response")
	ErrMalformedJSON    = errors.New("malformed JSON in response")
	ErrIncompleteResult = errors.New("response has neither verdict nor confidence")

	ErrTimeout = errors.New("analysis timed out")
)

// IsNormalization reports whether err came from turning model output into a Result.
func IsNormalization(err error) bool {
	return errors.Is(err, ErrEmptyResponse) ||
		errors.Is(err, ErrNoJSONFound) ||
		errors.Is(err, ErrMalformedJSON) ||
		errors.Is(err, ErrIncompleteResult)
}
