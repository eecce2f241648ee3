package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestVerifyRoundTrip(t *testing.T) {
	svc := NewService("test-secret")

	raw, err := svc.Issue("Reader@Example.COM")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if err := svc.Verify(raw, "reader@example.com"); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	// case-insensitive email comparison
	if err := svc.Verify(raw, "READER@example.com"); err != nil {
		t.Fatalf("expected case-insensitive match, got %v", err)
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := NewService("test-secret").WithClock(fixedClock(issuedAt))
	raw, err := svc.Issue("reader@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	cases := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{"just before expiry", issuedAt.Add(23*time.Hour + 59*time.Minute), nil},
		{"just after expiry", issuedAt.Add(24*time.Hour + 1*time.Minute), ErrExpired},
	}
	for _, tc := range cases {
		svc.WithClock(fixedClock(tc.at))
		err := svc.Verify(raw, "reader@example.com")
		if !errors.Is(err, tc.wantErr) && !(tc.wantErr == nil && err == nil) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	svc := NewService("test-secret")
	raw, err := svc.Issue("reader@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected header.payload.signature, got %d parts", len(parts))
	}

	flip := func(s string) string {
		b := []byte(s)
		i := len(b) / 2
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		return string(b)
	}

	tampered := map[string]string{
		"payload":   parts[0] + "." + flip(parts[1]) + "." + parts[2],
		"signature": parts[0] + "." + parts[1] + "." + flip(parts[2]),
		"truncated": parts[0] + "." + parts[1],
	}
	for name, tok := range tampered {
		if err := svc.Verify(tok, "reader@example.com"); err == nil {
			t.Errorf("%s tampering not detected", name)
		}
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := NewService("secret-a").Issue("reader@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := NewService("secret-b").Verify(raw, "reader@example.com"); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestVerifyRejectsEmailMismatch(t *testing.T) {
	svc := NewService("test-secret")
	raw, err := svc.Issue("reader@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := svc.Verify(raw, "other@example.com"); !errors.Is(err, ErrEmailMismatch) {
		t.Fatalf("expected email mismatch, got %v", err)
	}
}
