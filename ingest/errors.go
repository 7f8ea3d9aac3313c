package ingest

import "errors"

// IngestErrorKind classifies ingestion errors.
type IngestErrorKind int

const (
	// IngestErrorStream indicates a framing error on the input stream.
	IngestErrorStream IngestErrorKind = iota
	// IngestErrorPolicy indicates the policy refused an event or a flush failed.
	IngestErrorPolicy
	// IngestErrorBuild indicates a capture that could not be turned into an event.
	IngestErrorBuild
	// IngestErrorCanceled indicates context cancellation.
	IngestErrorCanceled
)

func (k IngestErrorKind) String() string {
	switch k {
	case IngestErrorStream:
		return "stream"
	case IngestErrorPolicy:
		return "policy"
	case IngestErrorBuild:
		return "build"
	case IngestErrorCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// IngestError classifies ingestion errors for outcome determination.
type IngestError struct {
	Kind IngestErrorKind
	Err  error
}

func (e *IngestError) Error() string {
	return e.Err.Error()
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

func isKind(err error, kind IngestErrorKind) bool {
	var ingErr *IngestError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == kind
	}
	return false
}

// IsPolicyError returns true if the error is a policy failure.
func IsPolicyError(err error) bool { return isKind(err, IngestErrorPolicy) }

// IsCanceledError returns true if the error is due to context cancellation.
func IsCanceledError(err error) bool { return isKind(err, IngestErrorCanceled) }

// IsStreamError returns true if the error is a stream/frame error.
func IsStreamError(err error) bool { return isKind(err, IngestErrorStream) }

// IsBuildError returns true if a capture was rejected.
func IsBuildError(err error) bool { return isKind(err, IngestErrorBuild) }
