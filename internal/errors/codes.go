// Package errors provides the coded error taxonomy of the lifecycle engine.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unclassified error.
	CodeUnknown Code = "UNKNOWN"

	// CodeNotFound means a task, parent task, comment, attachment, label,
	// status or project id does not exist.
	CodeNotFound Code = "NOT_FOUND"
	// CodeValidation means the input references missing entities or breaks
	// an invariant such as label name uniqueness.
	CodeValidation Code = "VALIDATION"
	// CodeUnauthorized means the actor may not perform the operation.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeConflict means the write was made against a stale task version.
	CodeConflict Code = "CONFLICT"
	// CodeUploadFailed means an attachment could not be stored.
	CodeUploadFailed Code = "UPLOAD_FAILED"
	// CodeInternal covers storage and unexpected failures.
	CodeInternal Code = "INTERNAL"
)

// Sentinels usable as errors.Is targets; matching is by code.
var (
	ErrNotFound     = New(CodeNotFound, "not found")
	ErrValidation   = New(CodeValidation, "validation failed")
	ErrUnauthorized = New(CodeUnauthorized, "unauthorized")
	ErrConflict     = New(CodeConflict, "conflict")
	ErrUploadFailed = New(CodeUploadFailed, "upload failed")
)

// ExitCode maps a code to a process exit status for the CLI.
func (c Code) ExitCode() int {
	switch c {
	case CodeNotFound:
		return 3
	case CodeValidation:
		return 4
	case CodeUnauthorized:
		return 5
	case CodeConflict:
		return 6
	case CodeUploadFailed:
		return 7
	default:
		return 1
	}
}
