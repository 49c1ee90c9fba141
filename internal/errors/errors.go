package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrFileTooLarge   = &AppError{Code: "VAL_001", Message: "file exceeds maximum size"}
	ErrFileType       = &AppError{Code: "VAL_002", Message: "file type not supported"}
	ErrBatchTooLarge  = &AppError{Code: "VAL_003", Message: "too many files in batch"}
	ErrFileUnreadable = &AppError{Code: "VAL_004", Message: "file cannot be read"}

	ErrTransport   = &AppError{Code: "HTTP_001", Message: "request failed"}
	ErrBackend     = &AppError{Code: "HTTP_002", Message: "backend returned an error"}
	ErrCircuitOpen = &AppError{Code: "HTTP_003", Message: "backend temporarily unavailable"}

	ErrJobFailed     = &AppError{Code: "JOB_001", Message: "OCR processing failed"}
	ErrJobNotFound   = &AppError{Code: "JOB_002", Message: "job not found"}
	ErrUnknownStatus = &AppError{Code: "JOB_003", Message: "backend reported an unknown job status"}

	ErrPollTimeout   = &AppError{Code: "POLL_001", Message: "OCR processing timeout"}
	ErrPollCancelled = &AppError{Code: "POLL_002", Message: "polling cancelled"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// IsTransient reports whether an error is worth retrying inside a polling
// run. Only transport-class failures qualify; validation and job errors
// are final.
func IsTransient(err error) bool {
	switch GetCode(err) {
	case "HTTP_001", "HTTP_003":
		return true
	}
	return false
}
