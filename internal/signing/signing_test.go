package signing

import "testing"

func TestSigner(t *testing.T) {
	secret := []byte("topsecret")
	s := NewSigner(secret)
	sig := s.Sign("req123", 1700000000)
	if len(sig) == 0 {
		t.Fatalf("expected signature")
	}
	if !s.Validate("req123", "1700000000", sig) {
		t.Fatalf("expected signature to validate")
	}
	if s.Validate("other", "1700000000", sig) {
		t.Fatalf("expected validation to fail for wrong request id")
	}
	if s.Validate("req123", "42", sig) {
		t.Fatalf("expected validation to fail for wrong expiry")
	}
	if s.Validate("req123", "not-a-number", sig) {
		t.Fatalf("expected validation to fail for malformed expiry")
	}
}
