package upload

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ruteri/storageitem-service/interfaces"
	"github.com/ruteri/storageitem-service/staging"
)

var (
	// ErrBlankFieldName is returned when Ingest is called without a field name.
	ErrBlankFieldName = errors.New("upload field name cannot be blank")

	// ErrNoStorage is returned when no storage name can be resolved for an item.
	ErrNoStorage = errors.New("no storage configured for upload")

	// ErrAmbiguousPathGenerator is returned when two path generators share the
	// winning priority for a storage.
	ErrAmbiguousPathGenerator = errors.New("ambiguous path generator priorities")

	// ErrEmptyUpload is returned for uploads without a file name or without bytes.
	ErrEmptyUpload = errors.New("empty upload")

	// ErrMissingPath is returned for JSON references without a path.
	ErrMissingPath = errors.New("storage item reference has no path")

	// ErrInvalidReference is returned for JSON references that are not objects
	// or carry fields of the wrong type.
	ErrInvalidReference = errors.New("invalid storage item reference")

	// ErrMalformedRequest is returned when the request body cannot be decoded.
	ErrMalformedRequest = errors.New("malformed upload request")

	// ErrRejected is wrapped by hooks that refuse an upload because of its content.
	// Failures wrapping it are classified as invalid input rather than plugin errors.
	ErrRejected = errors.New("upload rejected")

	// ErrSave wraps backend write failures.
	ErrSave = errors.New("failed to save storage item")
)

// Stage names a step of the ingestion pipeline.
type Stage string

const (
	StagePreValidate Stage = "pre-validate"
	StagePreSave     Stage = "pre-save"
	StagePostSave    Stage = "post-save"
)

// HookError reports the hook that aborted an ingestion and the stage it ran in.
type HookError struct {
	Stage Stage
	Hook  string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook [%s] failed: %v", e.Stage, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// ErrorClass groups ingestion failures by who has to act on them.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	// ClassConfiguration errors need an operator: blank field names, missing
	// storages, ambiguous path generators.
	ClassConfiguration
	// ClassInvalid errors are caused by the request and must not be retried as-is.
	ClassInvalid
	// ClassIO errors come from staging or the storage backend.
	ClassIO
	// ClassPlugin errors come from a registered hook.
	ClassPlugin
)

func (c ErrorClass) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassInvalid:
		return "invalid"
	case ClassIO:
		return "io"
	case ClassPlugin:
		return "plugin"
	default:
		return "unknown"
	}
}

// Classify returns the class of an error returned by the Factory.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, ErrBlankFieldName),
		errors.Is(err, ErrNoStorage),
		errors.Is(err, ErrAmbiguousPathGenerator):
		return ClassConfiguration
	case errors.Is(err, ErrEmptyUpload),
		errors.Is(err, ErrMissingPath),
		errors.Is(err, ErrInvalidReference),
		errors.Is(err, ErrMalformedRequest),
		errors.Is(err, ErrRejected),
		errors.Is(err, interfaces.ErrUnknownStorage),
		errors.As(err, &maxBytesErr):
		return ClassInvalid
	}

	var hookErr *HookError
	if errors.As(err, &hookErr) {
		return ClassPlugin
	}

	if errors.Is(err, staging.ErrStaging) || errors.Is(err, ErrSave) {
		return ClassIO
	}

	return ClassUnknown
}
