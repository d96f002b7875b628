package decoder

import (
	"errors"
	"fmt"
)

var (
	ErrParse   = errors.New("malformed response")
	ErrDecode  = errors.New("undecodable value")
	errIndex   = errors.New("index out of range")
	errTrailer = errors.New("content after root element")
)

// DecodeError reports a recognised field whose raw value breaks its decode rule.
type DecodeError struct {
	Field      string
	Identifier string
	Value      string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q (%s) from %q: %v", e.Field, e.Identifier, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
