package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/devquest008/campus-connect/internal/auth"
	"github.com/devquest008/campus-connect/internal/views"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(status int, err error) *ApiError {
	return &ApiError{
		StatusCode: status,
		Message:    lower(http.StatusText(status)),
		Err:        err,
	}
}

func NewBadRequestError() *ApiError {
	return newApiError(http.StatusBadRequest, nil)
}

func NewNotFoundError() *ApiError {
	return newApiError(http.StatusNotFound, nil)
}

func NewInternalServerError(err error) *ApiError {
	return newApiError(http.StatusInternalServerError, err)
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized, nil)
}

func NewForbiddenError() *ApiError {
	return newApiError(http.StatusForbidden, nil)
}

func NewMethodNotAllowedError() *ApiError {
	return newApiError(http.StatusMethodNotAllowed, nil)
}

// clientError is an ApiError whose message is the error text, for failures
// the user can act on.
func clientError(status int, err error) *ApiError {
	return &ApiError{StatusCode: status, Message: err.Error(), Err: err}
}

// errorFromView maps controller and passcode errors onto API errors.
func errorFromView(err error) *ApiError {
	var apiErr *ApiError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, views.ErrInvalidUsername),
		errors.Is(err, views.ErrEmptyUsername),
		errors.Is(err, views.ErrInvalidInput),
		errors.Is(err, auth.ErrInvalidEmail):
		return clientError(http.StatusBadRequest, err)
	case errors.Is(err, auth.ErrInvalidCode):
		return clientError(http.StatusUnauthorized, err)
	case errors.Is(err, views.ErrNotFound):
		return NewNotFoundError()
	case errors.Is(err, views.ErrForbidden),
		errors.Is(err, views.ErrNotConnected),
		errors.Is(err, views.ErrNotMember):
		return clientError(http.StatusForbidden, err)
	case errors.Is(err, views.ErrNoProfile):
		return clientError(http.StatusPreconditionRequired, err)
	case errors.Is(err, views.ErrProfileExists),
		errors.Is(err, views.ErrSessionFull),
		errors.Is(err, views.ErrAlreadyConnected):
		return clientError(http.StatusConflict, err)
	case errors.Is(err, auth.ErrRateLimited):
		return clientError(http.StatusTooManyRequests, err)
	default:
		return NewInternalServerError(err)
	}
}
