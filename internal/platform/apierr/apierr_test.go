package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrappedErrorsKeepStatusAndCode(t *testing.T) {
	err := fmt.Errorf("mark lesson: %w", NotPurchased("course %s not purchased", "42"))
	if got := StatusOf(err); got != http.StatusForbidden {
		t.Fatalf("status: want=%d got=%d", http.StatusForbidden, got)
	}
	if got := CodeOf(err); got != CodeNotPurchased {
		t.Fatalf("code: want=%q got=%q", CodeNotPurchased, got)
	}
	if !errors.Is(err, ErrNotPurchased) {
		t.Fatalf("errors.Is(ErrNotPurchased) = false")
	}
	if errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("errors.Is(ErrCourseNotFound) = true")
	}
}

func TestUntypedErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")
	if got := StatusOf(err); got != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", got)
	}
	if got := CodeOf(err); got != CodeInternal {
		t.Fatalf("code: want=%q got=%q", CodeInternal, got)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFound(CodeQuizNotFound, "no quiz"))
	if !IsCode(err, CodeQuizNotFound) {
		t.Fatalf("IsCode(quiz_not_found) = false")
	}
	if IsCode(err, CodeCourseNotFound) || IsCode(errors.New("x"), CodeInternal) {
		t.Fatalf("IsCode matched the wrong code")
	}
}
