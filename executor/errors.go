package executor

import "fmt"

// ErrorKind identifies the class of an execution error. The set is stable so
// that transport adapters can map kinds to status codes without string matching.
type ErrorKind string

// Execution error kinds
const (
	KindUnsupportedLanguage   ErrorKind = "unsupported_language"
	KindTempDirectoryCreation ErrorKind = "temp_directory_creation"
	KindFileWrite             ErrorKind = "file_write"
	KindExecution             ErrorKind = "execution"
	KindTaskJoin              ErrorKind = "task_join"
	KindTimeout               ErrorKind = "timeout"
)

// Error is the error type returned by the engine. Elapsed is only meaningful
// for KindTimeout, where it carries the wall time observed before the kill.
type Error struct {
	Kind    ErrorKind
	Detail  string
	Elapsed float64
	cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch e.Kind {
	case KindUnsupportedLanguage:
		return fmt.Sprintf("unsupported language: %s", e.Detail)
	case KindTimeout:
		return fmt.Sprintf("execution timed out after %.2f seconds", e.Elapsed)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

func unsupportedLanguageError(language string) *Error {
	return &Error{Kind: KindUnsupportedLanguage, Detail: language}
}

func tempDirError(err error) *Error {
	return &Error{Kind: KindTempDirectoryCreation, Detail: err.Error(), cause: err}
}

func fileWriteError(detail string, err error) *Error {
	return &Error{Kind: KindFileWrite, Detail: detail, cause: err}
}

func executionError(detail string, err error) *Error {
	return &Error{Kind: KindExecution, Detail: detail, cause: err}
}

func taskJoinError(err error) *Error {
	return &Error{Kind: KindTaskJoin, Detail: err.Error(), cause: err}
}

func timeoutError(elapsed float64) *Error {
	return &Error{Kind: KindTimeout, Elapsed: elapsed}
}
