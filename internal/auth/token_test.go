package auth

import (
	"testing"
	"time"

	"github.com/triagehq/triage-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("test-secret", 60)
	role := domain.AgentRoleAdmin
	token, expiresAt, err := tm.GenerateToken("agent-1", domain.SubjectTypeAgent, "org-1", &role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > 61*time.Minute {
		t.Errorf("expiry %v from now, want about an hour", remaining)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.SubjectID != "agent-1" || claims.Subject != domain.SubjectTypeAgent {
		t.Errorf("subject = %q/%q", claims.SubjectID, claims.Subject)
	}
	if claims.OrganizationID != "org-1" {
		t.Errorf("org = %q", claims.OrganizationID)
	}
	if claims.Role == nil || *claims.Role != domain.AgentRoleAdmin {
		t.Errorf("role = %v", claims.Role)
	}
}

func TestTokenRoundTripCustomer(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("test-secret", 0)
	token, _, err := tm.GenerateToken("cust-1", domain.SubjectTypeCustomer, "org-1", nil)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Role != nil {
		t.Errorf("role = %v, want nil for customers", claims.Role)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, _, err := NewTokenManager("secret-a", 60).GenerateToken("agent-1", domain.SubjectTypeAgent, "org-1", nil)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := NewTokenManager("secret-b", 60).ParseToken(token); err == nil {
		t.Fatal("ParseToken accepted token signed with another secret")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenManager("secret", 60).ParseToken("not.a.token"); err == nil {
		t.Fatal("ParseToken accepted malformed input")
	}
}
