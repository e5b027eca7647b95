package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced by ticket operations.
const (
	CodeForbidden             = "FORBIDDEN"
	CodeBlacklisted           = "BLACKLISTED"
	CodeDuplicateTicket       = "DUPLICATE_TICKET"
	CodeCategoryMisconfigured = "CATEGORY_MISCONFIGURED"
	CodeNotATicketChannel     = "NOT_A_TICKET_CHANNEL"
	CodeDeliveryFailure       = "DELIVERY_FAILURE"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInternal              = "INTERNAL_ERROR"
)

// DomainError standardizes application errors. Message is safe to show to
// the acting user.
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

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewBlacklisted(message string) error {
	return NewDomainError(CodeBlacklisted, message, http.StatusForbidden, nil)
}

func NewDuplicateTicket(message string, details map[string]any) error {
	return NewDomainError(CodeDuplicateTicket, message, http.StatusConflict, details)
}

func NewCategoryMisconfigured(message string, details map[string]any) error {
	return NewDomainError(CodeCategoryMisconfigured, message, http.StatusUnprocessableEntity, details)
}

func NewNotATicketChannel(message string) error {
	return NewDomainError(CodeNotATicketChannel, message, http.StatusBadRequest, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewDeliveryFailure marks a best-effort notification that could not be sent.
func NewDeliveryFailure(target string, err error) error {
	return &DomainError{
		Code:       CodeDeliveryFailure,
		Message:    fmt.Sprintf("could not deliver to %s", target),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"target": target},
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// IsBusinessRule reports whether err is an expected rejection that should be
// surfaced privately to the actor rather than logged as a failure.
func IsBusinessRule(err error) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	switch domainErr.Code {
	case CodeForbidden, CodeBlacklisted, CodeDuplicateTicket, CodeCategoryMisconfigured, CodeNotATicketChannel:
		return true
	default:
		return false
	}
}
