package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ContractViolation indicates a caller broke an internal precondition,
	// e.g. handing an enum to the container declaration path
	ContractViolation ErrorCode = "CONTRACT_VIOLATION"
	// OrderViolation indicates an assembled block references a fact that was
	// not emitted in an earlier block
	OrderViolation ErrorCode = "ORDER_VIOLATION"
	// InputInvalid indicates malformed front end input
	InputInvalid ErrorCode = "INPUT_INVALID"
	// IndexMissing indicates an input index or batch file was not found
	IndexMissing ErrorCode = "INDEX_MISSING"
	// SourceParse indicates a source file could not be parsed
	SourceParse ErrorCode = "SOURCE_PARSE"
	// SinkFailed indicates fact blocks could not be persisted
	SinkFailed ErrorCode = "SINK_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error represents a coded error with message and suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new coded error. Suggested fixes registered for the code
// are attached automatically.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a coded error without a cause using a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first coded error in err's chain, or "" if
// there is none.
func CodeOf(err error) ErrorCode {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// IsCode reports whether err's chain carries a coded error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	IndexMissing: {
		{
			Type:        RunCommand,
			Command:     "factgraph index --frontend php <path>",
			Safe:        true,
			Description: "Index PHP sources directly instead of a prebuilt index",
		},
	},
	SourceParse: {
		{
			Type:        RunCommand,
			Command:     "factgraph index --log-level debug <path>",
			Safe:        true,
			Description: "Re-run with debug logging to see the failing file",
		},
	},
	SinkFailed: {
		{
			Type:        RunCommand,
			Command:     "factgraph index --sqlite '' <path>",
			Safe:        true,
			Description: "Write blocks to a file only, skipping the SQLite sink",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
