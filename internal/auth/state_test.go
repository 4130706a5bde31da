package auth

import (
	"testing"
	"time"
)

func TestNewStateStartsMissing(t *testing.T) {
	s := NewState()
	if !s.Get().IsMissing() {
		t.Fatalf("expected fresh state to be Missing")
	}
	if !s.IsTokenExpired() {
		t.Fatalf("Missing must be considered expired")
	}
}

func TestSetValidThenExpiry(t *testing.T) {
	s := NewState()
	s.SetValid("tok", time.Now().Add(time.Hour))
	if s.IsTokenExpired() {
		t.Fatalf("token expiring in an hour should not be expired yet")
	}
	if s.Get().Token() != "tok" {
		t.Fatalf("expected token to round-trip")
	}

	s.SetValid("tok2", time.Now().Add(-time.Second))
	if !s.IsTokenExpired() {
		t.Fatalf("expected past expiry to be expired")
	}
}

func TestSilentSentinel(t *testing.T) {
	s := NewState()
	s.SetSilent(time.Now().Add(time.Second))
	if !s.Get().IsSilent() {
		t.Fatalf("expected silent status")
	}
	if s.Get().Token() != "SILENT" {
		t.Fatalf("expected wire-compatible SILENT sentinel, got %q", s.Get().Token())
	}
}

func TestResetReturnsToMissing(t *testing.T) {
	s := NewState()
	s.SetValid("tok", time.Now().Add(time.Hour))
	s.Reset()
	if !s.Get().IsMissing() {
		t.Fatalf("expected Reset to clear back to Missing")
	}
}

func TestValidateCredentials(t *testing.T) {
	if err := ValidateCredentials("u", "c", "k"); err != nil {
		t.Fatalf("expected no error with all fields set, got %v", err)
	}

	err := ValidateCredentials("", "c", "")
	if err == nil {
		t.Fatalf("expected error for missing fields")
	}
	mce, ok := err.(*MissingCredentialsError)
	if !ok || len(mce.Fields) != 2 {
		t.Fatalf("expected MissingCredentialsError listing 2 fields, got %v", err)
	}
}
