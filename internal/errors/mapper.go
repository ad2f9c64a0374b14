// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Taxonomy shared by the match engine, chat, accounts and the realtime channel.
// Callers wrap these with context via fmt.Errorf("%w: ...").
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("unavailable")
	ErrInternal        = errors.New("internal error")
)

// Map converts repo/infra errors into taxonomy errors.
// Errors already in the taxonomy pass through untouched.
func Map(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isTaxonomy(err):
		return err

	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: record not found", ErrNotFound)

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: record already exists", ErrConflict)

	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: request timed out", ErrUnavailable)

	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: request was canceled", ErrUnavailable)

	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}

func NotFound(msg string) error        { return fmt.Errorf("%w: %s", ErrNotFound, msg) }
func Conflict(msg string) error        { return fmt.Errorf("%w: %s", ErrConflict, msg) }
func Forbidden(msg string) error       { return fmt.Errorf("%w: %s", ErrForbidden, msg) }
func Unauthenticated(msg string) error { return fmt.Errorf("%w: %s", ErrUnauthenticated, msg) }
func Unavailable(msg string) error     { return fmt.Errorf("%w: %s", ErrUnavailable, msg) }

// InvalidArgument creates an InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

// Code returns the stable, transport-neutral name of err's taxonomy value.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus maps err to the status code the HTTP surface responds with.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "forbidden":
		return http.StatusForbidden
	case "unauthenticated":
		return http.StatusUnauthorized
	case "invalid_argument":
		return http.StatusBadRequest
	case "unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns a client-safe message. Internal errors are not echoed.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if Code(err) == "internal" {
		return "internal server error"
	}
	return err.Error()
}

func isTaxonomy(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrConflict, ErrForbidden, ErrUnauthenticated,
		ErrInvalidArgument, ErrUnavailable, ErrInternal,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
