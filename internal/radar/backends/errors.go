package backends

import (
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"

	"github.com/i474232898/radar-archive/internal/common"
)

const (
	CodeEndpointUnreachable = "E_ENDPOINT_UNREACHABLE"
	CodeBucketNotFound      = "E_BUCKET_NOT_FOUND"
	CodeObjectNotFound      = "E_OBJECT_NOT_FOUND"
	CodePermissionDenied    = "E_PERMISSION_DENIED"
	CodeTimeout             = "E_TIMEOUT"
	CodeRateLimited         = "E_RATE_LIMITED"
	CodeBackend             = "E_BACKEND"
)

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errBadURL        = errors.New("invalid bucket url")
)

// Error wraps backend failures with a code and a retryability hint.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func wrapError(code string, retryable bool, err error) *Error {
	return &Error{Code: code, Retryable: retryable, Err: err}
}

// IsNotFound reports whether err means the object or prefix does not exist.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeObjectNotFound
}

// isRetryable reports whether a failed operation may be attempted again.
func isRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// classifyError converts minio-go and network errors to *Error.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket":
		return wrapError(CodeBucketNotFound, false, err)
	case "NoSuchKey", "NotFound":
		return wrapError(CodeObjectNotFound, false, err)
	case "AccessDenied":
		return wrapError(CodePermissionDenied, false, err)
	case "SlowDown", "TooManyRequests", "RequestLimitExceeded":
		return wrapError(CodeRateLimited, true, err)
	case "InternalError", "ServiceUnavailable":
		return wrapError(CodeBackend, true, err)
	}

	msg := err.Error()
	switch {
	case common.HasAny(msg, "no such bucket"):
		return wrapError(CodeBucketNotFound, false, err)
	case common.HasAny(msg, "no such key", "not found", "does not exist"):
		return wrapError(CodeObjectNotFound, false, err)
	case common.HasAny(msg, "access denied", "permission"):
		return wrapError(CodePermissionDenied, false, err)
	case common.HasAny(msg, "timeout", "deadline"):
		return wrapError(CodeTimeout, true, err)
	case common.HasAny(msg, "connection refused", "connection reset", "unreachable", "no such host", "eof"):
		return wrapError(CodeEndpointUnreachable, true, err)
	}
	return wrapError(CodeBackend, false, err)
}
