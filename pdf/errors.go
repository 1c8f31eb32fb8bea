package pdf

import (
	"errors"
	"fmt"
)

// Sentinel errors for selection and build failures.
var (
	ErrInvalidPageRange = errors.New("invalid page range format")
	ErrEmptySelection   = errors.New("no documents selected")
	ErrNothingAssembled = errors.New("no pages could be assembled")
	ErrMissingFile      = errors.New("source file no longer exists")
	ErrUnknownFile      = errors.New("file is not part of the listing")
	ErrUnreadableFile   = errors.New("file cannot be selected")
)

// ParseError reports a malformed page range. It matches ErrInvalidPageRange
// with errors.Is.
type ParseError struct {
	Input string // the full range text
	Token string // the offending comma-separated token
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return ErrInvalidPageRange.Error()
	}
	return fmt.Sprintf("%s: %q", ErrInvalidPageRange, e.Token)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidPageRange
}

// SourceError wraps a failure tied to one source document of a build.
type SourceError struct {
	Path string
	Op   string // "count", "collect", "blank", ...
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
