package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrTransient     = errors.New("transient failure")
	ErrPermanentAPI  = errors.New("permanent api failure")
	ErrPersistence   = errors.New("persistence error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails carries the classified pieces of a stage failure for logging.
type ErrorDetails struct {
	Kind    string
	Message string
	Cause   error
}

// Details classifies an error against the sentinel taxonomy so callers can log
// a stable kind alongside the human-readable message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: "unknown"}
	}
	details := ErrorDetails{Kind: "unknown", Message: err.Error(), Cause: err}
	switch {
	case errors.Is(err, ErrValidation):
		details.Kind = "validation"
	case errors.Is(err, ErrConfiguration):
		details.Kind = "configuration"
	case errors.Is(err, ErrNotFound):
		details.Kind = "not_found"
	case errors.Is(err, ErrPersistence):
		details.Kind = "persistence"
	case errors.Is(err, ErrPermanentAPI):
		details.Kind = "permanent_api"
	case errors.Is(err, ErrTimeout):
		details.Kind = "timeout"
	case errors.Is(err, ErrTransient):
		details.Kind = "transient"
	}
	return details
}

// IsRetryable reports whether a failure is worth retrying at the stage level.
// Transient and timeout failures qualify; validation, configuration, and
// permanent API failures do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
