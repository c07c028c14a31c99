package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed conversion request
type ErrorKind string

const (
	KindFormParse  ErrorKind = "form_parse" // malformed or incomplete upload
	KindConversion ErrorKind = "conversion" // rasterizer failed or returned nothing
	KindFilesystem ErrorKind = "filesystem" // temp artifact could not be written, read or removed
)

// ConvertError carries the kind of failure together with the operation that failed
type ConvertError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ConvertError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConvertError) Unwrap() error {
	return e.Err
}

func formParseError(op string, err error) error {
	return &ConvertError{Kind: KindFormParse, Op: op, Err: err}
}

func conversionError(op string, err error) error {
	return &ConvertError{Kind: KindConversion, Op: op, Err: err}
}

func filesystemError(op string, err error) error {
	return &ConvertError{Kind: KindFilesystem, Op: op, Err: err}
}

// KindOf reports the kind of err, errors without a kind count as conversion failures
func KindOf(err error) ErrorKind {
	var convertErr *ConvertError
	if errors.As(err, &convertErr) {
		return convertErr.Kind
	}
	return KindConversion
}
