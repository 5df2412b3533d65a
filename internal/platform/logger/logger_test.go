package logger

import "testing"

func TestSanitizeValueRedactsSecrets(t *testing.T) {
	if got := sanitizeValue("access_token", "abc"); got != "[REDACTED]" {
		t.Fatalf("token: want=[REDACTED] got=%v", got)
	}
	if got := sanitizeValue("email", "a@b.c"); got != "[REDACTED]" {
		t.Fatalf("email: want=[REDACTED] got=%v", got)
	}
	if got := sanitizeValue("course_id", "42"); got != "42" {
		t.Fatalf("course_id: want=42 got=%v", got)
	}
}

func TestSanitizeValueHashesUserIDs(t *testing.T) {
	a := sanitizeValue("user_id", "6f1c2d3e-0000-4000-8000-000000000001")
	b := sanitizeValue("user_id", "6f1c2d3e-0000-4000-8000-000000000001")
	s, ok := a.(string)
	if !ok || len(s) != len("hash:")+12 {
		t.Fatalf("hash format: got=%v", a)
	}
	if a != b {
		t.Fatalf("hash must be stable: %v vs %v", a, b)
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"development", "production", "test"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("component", "test").Debug("hello", "k", "v")
	}
}
