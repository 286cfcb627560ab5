package interpreter

import (
	"errors"
	"fmt"
)

// ErrParse is the sentinel wrapped by every ParseError.
var ErrParse = errors.New("parse error")

// ParseError describes why content could not be turned into data.
type ParseError struct {
	Reason string
	Offset int // byte offset in the input, -1 when not applicable
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s (at offset %d)", e.Reason, e.Offset)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

func parseErrorf(offset int, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Reason: fmt.Sprintf(format, args...),
		Offset: offset,
	}
}
