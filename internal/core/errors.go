package core

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter indicates a request parameter is present but outside
// its valid range. It maps to a client error.
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrSynthesisFailed indicates that the inference engine failed during
// generation. It is reported to callers as an opaque server error; the
// underlying detail stays in the server log.
var ErrSynthesisFailed = errors.New("synthesis failed")

// MissingParameterError reports a required lookup key that is absent:
// an unknown character name, language tag, or cut strategy. It maps to a
// client error naming the offending key.
type MissingParameterError struct {
	Key string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing necessary parameter: %s", e.Key)
}

// NewMissingParameterError creates a MissingParameterError for the given key.
func NewMissingParameterError(key string) error {
	return &MissingParameterError{Key: key}
}

// IsMissingParameter reports whether err is a MissingParameterError.
func IsMissingParameter(err error) bool {
	var missingErr *MissingParameterError

	return errors.As(err, &missingErr)
}
