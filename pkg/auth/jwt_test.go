package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssuerRoundTrip(t *testing.T) {
	iss := NewIssuer("s3cret", time.Hour)
	tok, err := iss.Generate("admin", "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	c, err := iss.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.Username != "admin" || c.Session != "sess-1" || c.Subject != "admin" {
		t.Fatalf("claims = %+v", c)
	}
	if _, err := NewIssuer("other", time.Hour).Parse(tok); !errors.Is(err, ErrInvalid) {
		t.Fatalf("foreign secret accepted: %v", err)
	}
}

func TestIssuerExpiry(t *testing.T) {
	iss := NewIssuer("s3cret", time.Minute)
	tok, _ := iss.Generate("admin", "")
	iss.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := iss.Parse(tok); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckPassword(hash, "hunter2"); err != nil {
		t.Fatal(err)
	}
	if err := CheckPassword(hash, "hunter3"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("wrong password: %v", err)
	}
	if err := CheckPassword("", ""); !errors.Is(err, ErrBadPassword) {
		t.Fatal("empty hash accepted")
	}
}
