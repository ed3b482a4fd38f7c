package crypto

import (
	"bytes"
	"testing"
)

func TestHashPasswordVerifiesOriginal(t *testing.T) {
	hash, err := HashPassword("Testing123!")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := ComparePassword(hash, "Testing123!"); err != nil {
		t.Fatalf("expected password to verify: %v", err)
	}
}

func TestComparePasswordRejectsMismatch(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := ComparePassword(hash, "battery staple"); err == nil {
		t.Fatal("expected mismatch to fail")
	}
}

func TestHashPasswordSaltsEveryDigest(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatal("expected different digests for the same password")
	}
	if err := ComparePassword(first, "same-password"); err != nil {
		t.Fatalf("first digest should verify: %v", err)
	}
	if err := ComparePassword(second, "same-password"); err != nil {
		t.Fatalf("second digest should verify: %v", err)
	}
}
