package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the analysis pipeline and its API surface.
//
// Validation and not-found errors surface synchronously to HTTP callers.
// Everything that happens inside a running pipeline is captured onto the job's
// error field instead of propagating to the request that triggered it.

// ValidationError indicates a malformed request rejected before any job is created.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates an unknown job, channel, or video.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError for the given resource and id.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// EmptyResultError indicates a pipeline stage produced no data to continue with.
// The message distinguishes "no comments fetched" from "no relevant comments".
type EmptyResultError struct {
	Msg string
}

func (e *EmptyResultError) Error() string {
	return e.Msg
}

// NewEmptyResultError creates an EmptyResultError with the given message.
func NewEmptyResultError(format string, args ...interface{}) *EmptyResultError {
	return &EmptyResultError{Msg: fmt.Sprintf(format, args...)}
}

// NotReadyError indicates a results fetch against a job that has not
// completed. Carries the job's current status so callers can report it.
type NotReadyError struct {
	Status string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("analysis not yet complete: status is %s", e.Status)
}

// IsNotReady reports whether err is a NotReadyError.
func IsNotReady(err error) bool {
	var nre *NotReadyError
	return errors.As(err, &nre)
}

// UpstreamError indicates a collaborator failure or malformed payload.
// Stage names the pipeline stage so the job's error message identifies it.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps a collaborator error with the stage it occurred in.
func NewUpstreamError(stage string, err error) *UpstreamError {
	return &UpstreamError{Stage: stage, Err: err}
}

// InternalError wraps an unexpected failure. Callers see a generic message;
// the full detail is logged server-side only.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return "internal error"
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsEmptyResult reports whether err is an EmptyResultError.
func IsEmptyResult(err error) bool {
	var ere *EmptyResultError
	return errors.As(err, &ere)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
