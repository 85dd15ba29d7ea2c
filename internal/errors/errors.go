// Package errors defines the structured error types used across the
// processing pipeline. Precondition violations fail the run immediately;
// storage and parse failures identify the file or table they occurred on so
// the operator can tell which input is at fault.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a pipeline error.
type Code string

const (
	// CodePrecondition marks a violated input contract, such as a missing
	// required column. Never recoverable; never silently defaulted.
	CodePrecondition Code = "PRECONDITION"
	// CodeParse marks a malformed source file.
	CodeParse Code = "PARSE"
	// CodeStorage marks a filesystem read or write failure.
	CodeStorage Code = "STORAGE"
	// CodeDownload marks a failed raw-data fetch.
	CodeDownload Code = "DOWNLOAD"
)

// PipelineError is the structured error carried through the pipeline.
type PipelineError struct {
	Code    Code
	Table   string // input table or file the error relates to, if known
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	switch {
	case e.Table != "" && e.Err != nil:
		return fmt.Sprintf("%s [%s]: %s: %v", e.Code, e.Table, e.Message, e.Err)
	case e.Table != "":
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.Table, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the wrapped error for errors.Is/As chains.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPreconditionError reports a violated input contract on the named table.
func NewPreconditionError(table, message string) *PipelineError {
	return &PipelineError{Code: CodePrecondition, Table: table, Message: message}
}

// NewParseError reports a malformed source file.
func NewParseError(table, message string, err error) *PipelineError {
	return &PipelineError{Code: CodeParse, Table: table, Message: message, Err: err}
}

// NewStorageError reports a filesystem failure.
func NewStorageError(message string, err error) *PipelineError {
	return &PipelineError{Code: CodeStorage, Message: message, Err: err}
}

// NewDownloadError reports a failed fetch of the named source.
func NewDownloadError(source, message string, err error) *PipelineError {
	return &PipelineError{Code: CodeDownload, Table: source, Message: message, Err: err}
}

// IsPrecondition reports whether err is (or wraps) a precondition violation.
func IsPrecondition(err error) bool {
	return hasCode(err, CodePrecondition)
}

// IsParse reports whether err is (or wraps) a parse failure.
func IsParse(err error) bool {
	return hasCode(err, CodeParse)
}

func hasCode(err error, code Code) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}
