package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	// ErrQueueEmpty is returned by RequestRepository.Claim when nothing is queued.
	ErrQueueEmpty = errors.New("no queued generation request")
)

// ErrorKind is the stable discriminator persisted on failed requests and
// returned to clients.
type ErrorKind string

const (
	ErrorKindValidation       ErrorKind = "validation"
	ErrorKindProvider         ErrorKind = "provider"
	ErrorKindTimeout          ErrorKind = "timeout"
	ErrorKindPersistence      ErrorKind = "persistence"
	ErrorKindLineageIntegrity ErrorKind = "lineage_integrity"
	ErrorKindCanceled         ErrorKind = "canceled"
	ErrorKindNotFound         ErrorKind = "not_found"
	ErrorKindInternal         ErrorKind = "internal"
)

// ValidationError reports malformed or missing input. It is raised before any
// network call and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ProviderError reports a rejection or failure from a remote generation API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("provider error")
	if e.Provider != "" {
		b.WriteString(" (")
		b.WriteString(e.Provider)
		b.WriteString(")")
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TimeoutError reports that polling ran out of budget. The remote job may
// still complete but is no longer tracked.
type TimeoutError struct {
	ProviderJobID string
	Timeout       time.Duration
	Attempts      int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for job %s (%d attempts); it may still be processing remotely",
		e.Timeout, e.ProviderJobID, e.Attempts)
}

// PersistenceError reports a failed write after a successful remote
// generation. Provider quota has already been spent.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// LineageIntegrityError reports sourceId references that form a cycle.
type LineageIntegrityError struct {
	LineageID string
	NodeIDs   []string
}

func (e *LineageIntegrityError) Error() string {
	return fmt.Sprintf("lineage %s: source references form a cycle through %s",
		e.LineageID, strings.Join(e.NodeIDs, ", "))
}

// CanceledError reports a poll loop stopped by its caller.
type CanceledError struct {
	ProviderJobID string
	Err           error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("job %s canceled", e.ProviderJobID)
}

func (e *CanceledError) Unwrap() error { return e.Err }

// KindOf classifies err into the error taxonomy.
func KindOf(err error) ErrorKind {
	var (
		validationErr  *ValidationError
		providerErr    *ProviderError
		timeoutErr     *TimeoutError
		persistenceErr *PersistenceError
		lineageErr     *LineageIntegrityError
		canceledErr    *CanceledError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &persistenceErr):
		return ErrorKindPersistence
	case errors.As(err, &validationErr):
		return ErrorKindValidation
	case errors.As(err, &timeoutErr):
		return ErrorKindTimeout
	case errors.As(err, &canceledErr):
		return ErrorKindCanceled
	case errors.As(err, &providerErr):
		return ErrorKindProvider
	case errors.As(err, &lineageErr):
		return ErrorKindLineageIntegrity
	case errors.Is(err, ErrNotFound):
		return ErrorKindNotFound
	default:
		return ErrorKindInternal
	}
}
