// Package errors defines the coded error taxonomy shared by the settlement
// and claim services, with HTTP status mapping for the API layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of engine error.
type Code string

const (
	CodeInvalidCombination Code = "INVALID_COMBINATION"
	CodeDrawNotReady       Code = "DRAW_NOT_READY"
	CodeStaleState         Code = "STALE_STATE"
	CodeNotEligible        Code = "NOT_ELIGIBLE"
	CodeAlreadyDecided     Code = "ALREADY_DECIDED"
	CodeLimitReached       Code = "REPRINT_LIMIT_REACHED"
	CodeTicketSettled      Code = "TICKET_SETTLED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidation         Code = "VALIDATION_FAILED"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeRateLimited        Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL"
)

// Error is a coded service error. Services wrap these with fmt.Errorf("%w")
// and callers match with errors.As / engine-level helpers below.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two coded errors by code alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

func newError(code Code, status int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), HTTPStatus: status}
}

// InvalidCombination reports a malformed bet or winning-number digit string.
func InvalidCombination(combination string) *Error {
	return newError(CodeInvalidCombination, http.StatusBadRequest,
		"combination %q must be exactly 3 digits", combination)
}

// DrawNotReady reports settlement attempted before a result is published.
func DrawNotReady(drawID, reason string) *Error {
	return newError(CodeDrawNotReady, http.StatusConflict,
		"draw %s is not ready for settlement: %s", drawID, reason)
}

// StaleState reports an optimistic-concurrency conflict on a ticket transition.
func StaleState(ticketID, expected string) *Error {
	return newError(CodeStaleState, http.StatusConflict,
		"ticket %s is no longer in state %s", ticketID, expected)
}

// NotEligible reports a claim on a ticket that is not claimable by the actor.
func NotEligible(reason string) *Error {
	return newError(CodeNotEligible, http.StatusUnprocessableEntity,
		"claim not eligible: %s", reason)
}

// AlreadyDecided reports a duplicate decision on a claim.
func AlreadyDecided(claimID string) *Error {
	return newError(CodeAlreadyDecided, http.StatusConflict,
		"claim %s has already been decided", claimID)
}

// LimitReached reports a reprint denied by the bounded counter.
func LimitReached(ticketID string, count int) *Error {
	return newError(CodeLimitReached, http.StatusConflict,
		"ticket %s reached the reprint limit (%d)", ticketID, count)
}

// TicketSettled reports a reprint denied because the ticket is a determined winner.
func TicketSettled(ticketID, status string) *Error {
	return newError(CodeTicketSettled, http.StatusConflict,
		"ticket %s is settled as %s and cannot be reprinted", ticketID, status)
}

// NotFound reports a missing resource.
func NotFound(kind, id string) *Error {
	return newError(CodeNotFound, http.StatusNotFound, "%s %s not found", kind, id)
}

// Validation reports a caller-correctable input problem.
func Validation(format string, args ...interface{}) *Error {
	return newError(CodeValidation, http.StatusBadRequest, format, args...)
}

// Unauthorized reports a missing or unacceptable actor identity.
func Unauthorized(reason string) *Error {
	return newError(CodeUnauthorized, http.StatusUnauthorized, "unauthorized: %s", reason)
}

// RateLimitExceeded reports a throttled request.
func RateLimitExceeded(limit int, window string) *Error {
	return newError(CodeRateLimited, http.StatusTooManyRequests,
		"rate limit of %d per %s exceeded", limit, window)
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", HTTPStatus: http.StatusInternalServerError, Err: err}
}

// CodeOf extracts the engine code from an error chain, or CodeInternal.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// HTTPStatus extracts the mapped HTTP status from an error chain.
func HTTPStatus(err error) int {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}
