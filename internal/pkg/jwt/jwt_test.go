package jwt

import (
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	s, err := NewSigner("secret")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	tok, err := s.Sign("admin", "broadcast", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := s.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "admin" || claims.Scope != "broadcast" || claims.Issuer != Issuer {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	s, _ := NewSigner("secret")
	other, _ := NewSigner("other")
	foreign, _ := other.Sign("admin", "", 0)

	start := time.Now()
	s.now = func() time.Time { return start }
	expiring, _ := s.Sign("admin", "", time.Minute)
	s.now = func() time.Time { return start.Add(2 * time.Minute) }

	for name, tok := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"expired":      expiring,
	} {
		if _, err := s.Parse(tok); err == nil {
			t.Errorf("%s: Parse succeeded", name)
		}
	}
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner(""); err != ErrNoSecret {
		t.Errorf("err = %v, want ErrNoSecret", err)
	}
}
