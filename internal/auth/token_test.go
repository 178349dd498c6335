package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"apptracker.org/internal/rbac"
)

func setTestSecret(t *testing.T) {
	t.Helper()
	ResetSecretForTests()
	t.Setenv("EAT_AUTH_SECRET", "unit-test-secret-0123456789abcdef")
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndValidateToken(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateToken("acc-42", rbac.RoleTechnician, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "acc-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != string(rbac.RoleTechnician) {
		t.Fatalf("role was not preserved: %s", claims.Role)
	}
	if claims.Issuer != "eat" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
}

func TestGenerateTokenRejectsUnknownRole(t *testing.T) {
	setTestSecret(t)

	if _, err := GenerateToken("acc-1", rbac.Role("sysadmin"), time.Minute); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestParseAndValidateRejectsExpired(t *testing.T) {
	setTestSecret(t)

	secretBytes, err := loadSecret()
	if err != nil {
		t.Fatalf("loadSecret: %v", err)
	}
	past := time.Now().UTC().Add(-2 * time.Hour)
	claims := Claims{
		Role: string(rbac.RoleBusinessUser),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "eat",
			Subject:   "acc-1",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
			ID:        "expired-token",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretBytes)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := ParseAndValidate(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseAndValidateRejectsGarbage(t *testing.T) {
	setTestSecret(t)

	for _, tok := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		if _, err := ParseAndValidate(tok); err == nil {
			t.Fatalf("expected rejection for %q", tok)
		}
	}
}

func TestParseAndValidateRejectsWrongSecret(t *testing.T) {
	setTestSecret(t)
	token, err := GenerateToken("acc-1", rbac.RoleApplicationAdmin, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	ResetSecretForTests()
	t.Setenv("EAT_AUTH_SECRET", "a-completely-different-secret-value")
	if _, err := ParseAndValidate(token); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	ResetSecretForTests()
	t.Setenv("EAT_AUTH_SECRET", "")
	t.Cleanup(ResetSecretForTests)

	_, err := GenerateToken("acc-1", rbac.RoleBusinessUser, time.Minute)
	if err == nil {
		t.Fatal("expected error when secret is unset")
	}
	if !errors.Is(err, errMissingSecret) {
		t.Fatalf("expected missing-secret error, got %v", err)
	}
}
