// ABOUTME: Error taxonomy surfaced by Plugin operations
// ABOUTME: Separates invalid games, I/O failures, decode failures, and missing parses

package plugin

import (
	"errors"
	"fmt"

	"github.com/prateek/esplens/game"
	"github.com/prateek/esplens/record"
)

var (
	// ErrInvalidGame is returned when a game name is not supported
	ErrInvalidGame = game.ErrInvalidGame

	// ErrIO is matched by errors reading a plugin's bytes
	ErrIO = errors.New("plugin I/O error")

	// ErrParse is matched by errors decoding a plugin's structure
	ErrParse = errors.New("plugin parse error")

	// ErrNotParsed is returned by validity checks that need a whole-plugin parse
	ErrNotParsed = errors.New("plugin not parsed")
)

// ParseError reports a structural decode failure. Kind keeps the decoder's
// classification; Err keeps its original message.
type ParseError struct {
	Path string
	Kind record.ErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", ErrParse, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrParse, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches ErrParse in addition to the wrapped decode error
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// IOError reports a failure to open or read a plugin
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrIO, e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is matches ErrIO in addition to the wrapped error
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// IsInvalidGameError checks if the error is or wraps ErrInvalidGame
func IsInvalidGameError(err error) bool {
	return errors.Is(err, ErrInvalidGame)
}

// IsIOError checks if the error is or wraps ErrIO
func IsIOError(err error) bool {
	return errors.Is(err, ErrIO)
}

// IsParseError checks if the error is or wraps ErrParse
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsNotParsedError checks if the error is or wraps ErrNotParsed
func IsNotParsedError(err error) bool {
	return errors.Is(err, ErrNotParsed)
}

// newNotParsedError names the check that could not run
func newNotParsedError(path, check string) error {
	return fmt.Errorf("%w: %s needs a whole-plugin parse of %q", ErrNotParsed, check, path)
}

// classify converts a decoder failure into a ParseError, or an IOError when
// the underlying reader failed
func classify(path string, err error, readErr error) error {
	if readErr != nil {
		return &IOError{Path: path, Op: "read", Err: readErr}
	}
	return &ParseError{Path: path, Kind: record.KindOf(err), Err: err}
}
