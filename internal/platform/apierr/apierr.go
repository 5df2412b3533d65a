package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotPurchased     = "not_purchased"
	CodeCourseNotFound   = "course_not_found"
	CodeLessonNotFound   = "lesson_not_found"
	CodeQuizNotFound     = "quiz_not_found"
	CodePurchaseNotFound = "purchase_not_found"
	CodeInvalidInput     = "invalid_input"
	CodeConflict         = "conflict"
	CodeUnauthorized     = "unauthorized"
	CodeInternal         = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

var (
	ErrNotPurchased     = &Error{Status: http.StatusForbidden, Code: CodeNotPurchased}
	ErrCourseNotFound   = &Error{Status: http.StatusNotFound, Code: CodeCourseNotFound}
	ErrLessonNotFound   = &Error{Status: http.StatusNotFound, Code: CodeLessonNotFound}
	ErrQuizNotFound     = &Error{Status: http.StatusNotFound, Code: CodeQuizNotFound}
	ErrPurchaseNotFound = &Error{Status: http.StatusNotFound, Code: CodePurchaseNotFound}
	ErrInvalidInput     = &Error{Status: http.StatusBadRequest, Code: CodeInvalidInput}
	ErrConflict         = &Error{Status: http.StatusConflict, Code: CodeConflict}
	ErrUnauthorized     = &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized}
)

func NotPurchased(format string, args ...any) *Error {
	return New(http.StatusForbidden, CodeNotPurchased, fmt.Errorf(format, args...))
}

func NotFound(code string, format string, args ...any) *Error {
	return New(http.StatusNotFound, code, fmt.Errorf(format, args...))
}

func InvalidInput(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeInvalidInput, fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeConflict, fmt.Errorf(format, args...))
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, fmt.Errorf(format, args...))
}

// StatusOf returns the HTTP status carried by err, or 500 for untyped errors.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the error code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
