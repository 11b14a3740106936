// ABOUTME: Structured decode failures for plugin byte streams
// ABOUTME: Distinguishes truncated input from malformed headers and records

package record

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is matched by decode errors caused by input ending early
	ErrTruncated = errors.New("truncated input")

	// ErrMalformedHeader is matched by decode errors in the file header record
	ErrMalformedHeader = errors.New("malformed header")

	// ErrMalformedRecord is matched by decode errors in groups and records
	ErrMalformedRecord = errors.New("malformed record")
)

// ErrorKind classifies a DecodeError
type ErrorKind int

const (
	KindTruncated ErrorKind = iota + 1
	KindMalformedHeader
	KindMalformedRecord
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTruncated:
		return ErrTruncated
	case KindMalformedHeader:
		return ErrMalformedHeader
	case KindMalformedRecord:
		return ErrMalformedRecord
	default:
		return nil
	}
}

func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// DecodeError reports where and why decoding stopped
type DecodeError struct {
	Kind   ErrorKind
	Offset int64
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Msg)
}

// Is matches the sentinel for the error's kind
func (e *DecodeError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newDecodeError(kind ErrorKind, offset int64, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first DecodeError in err's chain, or 0
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
