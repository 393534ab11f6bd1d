package security_test

import (
	"testing"

	"github.com/bobasync/api/internal/security"
)

func TestHS256_RoundTrip(t *testing.T) {
	tok, err := security.MakeAccess("secret", "u1", "u@example.com", "user")
	if err != nil {
		t.Fatal(err)
	}

	c, err := security.ParseAccess("secret", tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.UID != "u1" || c.Email != "u@example.com" || c.Role != "user" {
		t.Fatalf("claims mismatch: %#v", c)
	}
	if c.Subject != "u1" {
		t.Fatalf("subject: %q", c.Subject)
	}
	if c.ExpiresAt == nil || c.IssuedAt == nil {
		t.Fatal("missing registered claims")
	}
	if got := c.ExpiresAt.Sub(c.IssuedAt.Time); got != security.AccessTTL {
		t.Fatalf("ttl: %v", got)
	}
}

func TestHS256_WrongSecret(t *testing.T) {
	tok, err := security.MakeAccess("secret", "u1", "u@example.com", "user")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := security.ParseAccess("other", tok); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
}

func TestHS256_Garbage(t *testing.T) {
	if _, err := security.ParseAccess("secret", "not.a.token"); err == nil {
		t.Fatal("garbage accepted")
	}
}

func TestOpaqueToken(t *testing.T) {
	a, err := security.NewOpaqueToken()
	if err != nil {
		t.Fatal(err)
	}
	b, err := security.NewOpaqueToken()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("tokens must be unique")
	}
	if security.HashToken(a) != security.HashToken(a) {
		t.Fatal("hash must be deterministic")
	}
	if security.HashToken(a) == security.HashToken(b) {
		t.Fatal("distinct tokens share a hash")
	}
}

func TestPassword_RoundTrip(t *testing.T) {
	h, err := security.HashPassword("StrongPass1")
	if err != nil {
		t.Fatal(err)
	}
	if !security.CheckPassword(h, "StrongPass1") {
		t.Fatal("correct password rejected")
	}
	if security.CheckPassword(h, "WrongPass1") {
		t.Fatal("wrong password accepted")
	}
}
