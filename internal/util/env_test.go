package util

import (
	"testing"
	"time"
)

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("TASKLIST_UTIL_TEST", "  value ")
	if got := EnvOrDefault("TASKLIST_UTIL_TEST", "fallback"); got != "value" {
		t.Fatalf("expected trimmed value, got %q", got)
	}

	t.Setenv("TASKLIST_UTIL_TEST", "   ")
	if got := EnvOrDefault("TASKLIST_UTIL_TEST", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TASKLIST_UTIL_DURATION", "")
	d, err := EnvDuration("TASKLIST_UTIL_DURATION", 3*time.Second)
	if err != nil || d != 3*time.Second {
		t.Fatalf("expected fallback, got %v, %v", d, err)
	}

	t.Setenv("TASKLIST_UTIL_DURATION", "250ms")
	d, err = EnvDuration("TASKLIST_UTIL_DURATION", time.Second)
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v, %v", d, err)
	}

	t.Setenv("TASKLIST_UTIL_DURATION", "soon")
	if _, err := EnvDuration("TASKLIST_UTIL_DURATION", time.Second); err == nil {
		t.Fatal("expected parse error")
	}
}
