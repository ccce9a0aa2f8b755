package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParse(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("64b7f0c2e4b0a1a2b3c4d5e6", "asha@example.com", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "64b7f0c2e4b0a1a2b3c4d5e6" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if claims.Email != "asha@example.com" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _ := NewTokenService("one", time.Hour).Issue("u", "e@example.com", "user")
	if _, err := NewTokenService("two", time.Hour).Parse(token); err == nil {
		t.Error("token signed with another secret should be rejected")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }
	token, err := svc.Issue("u", "e@example.com", "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc.now = time.Now
	_, err = svc.Parse(token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := NewTokenService("secret", time.Hour).Parse("not.a.token"); err == nil {
		t.Error("garbage should be rejected")
	}
}
