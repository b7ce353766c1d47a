package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/matter-service/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts service and repository errors into a DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var (
		unknownField    *domain.UnknownFieldError
		unsupportedType *domain.UnsupportedFieldTypeError
		invalidValue    *domain.InvalidFieldValueError
		txErr           *domain.TransactionError
	)
	switch {
	case errors.As(err, &unknownField):
		return &DomainError{
			Code:       "UNKNOWN_FIELD",
			Message:    unknownField.Error(),
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"field": unknownField.Name},
			Err:        err,
		}
	case errors.As(err, &unsupportedType):
		return &DomainError{
			Code:       "UNSUPPORTED_FIELD_TYPE",
			Message:    unsupportedType.Error(),
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"fieldType": unsupportedType.FieldType},
			Err:        err,
		}
	case errors.As(err, &invalidValue):
		return &DomainError{
			Code:       "VALIDATION_FAILED",
			Message:    invalidValue.Error(),
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"fieldType": string(invalidValue.FieldType)},
			Err:        err,
		}
	case errors.Is(err, domain.ErrMatterNotFound):
		de := NewNotFound("matter", nil).(*DomainError)
		de.Err = err
		return de
	case errors.Is(err, pgx.ErrNoRows):
		de := NewNotFound("resource", nil).(*DomainError)
		de.Err = err
		return de
	case errors.As(err, &txErr):
		// the cause stays in Err for logging; clients only see the failed operation
		return &DomainError{
			Code:       "TRANSACTION_FAILED",
			Message:    "transaction failed and was rolled back",
			HTTPStatus: http.StatusInternalServerError,
			Details:    map[string]any{"operation": txErr.Op},
			Err:        err,
		}
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}
