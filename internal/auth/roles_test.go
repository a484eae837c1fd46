package auth

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/triage-service/internal/domain"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

func agentPrincipal(role domain.AgentRole) *Principal {
	return &Principal{
		SubjectType:    domain.SubjectTypeAgent,
		OrganizationID: "org-1",
		Agent:          &domain.Agent{ID: "agent-1", OrganizationID: "org-1", Role: role, Active: true},
	}
}

func customerPrincipal() *Principal {
	return &Principal{
		SubjectType:    domain.SubjectTypeCustomer,
		OrganizationID: "org-1",
		Customer:       &domain.Customer{ID: "cust-1", OrganizationID: "org-1", Active: true},
	}
}

// runGuard sends one request through the guard with the given principal
// preloaded and returns the error the guard produced, if any.
func runGuard(t *testing.T, guard fiber.Handler, principal *Principal) error {
	t.Helper()

	var captured error
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			captured = err
			return c.SendStatus(fiber.StatusTeapot)
		},
	})
	app.Get("/guarded",
		func(c *fiber.Ctx) error {
			if principal != nil {
				c.Locals(principalKey, principal)
			}
			return c.Next()
		},
		guard,
		func(c *fiber.Ctx) error { return c.SendString("ok") },
	)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/guarded", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return captured
}

func assertGuardCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("guard error = %v, want DomainError", err)
	}
	if domainErr.Code != wantCode {
		t.Errorf("code = %q, want %q", domainErr.Code, wantCode)
	}
}

func TestRequireCustomer(t *testing.T) {
	t.Parallel()

	if err := runGuard(t, RequireCustomer(), customerPrincipal()); err != nil {
		t.Errorf("customer rejected: %v", err)
	}
	assertGuardCode(t, runGuard(t, RequireCustomer(), nil), "UNAUTHORIZED")
	assertGuardCode(t, runGuard(t, RequireCustomer(), agentPrincipal(domain.AgentRoleAgent)), "FORBIDDEN")
}

func TestRequireAgentRole(t *testing.T) {
	t.Parallel()

	if err := runGuard(t, RequireAgentRole(), agentPrincipal(domain.AgentRoleAgent)); err != nil {
		t.Errorf("agent rejected from open agent route: %v", err)
	}
	if err := runGuard(t, RequireAgentRole(domain.AgentRoleAdmin), agentPrincipal(domain.AgentRoleAdmin)); err != nil {
		t.Errorf("admin rejected from admin route: %v", err)
	}
	assertGuardCode(t, runGuard(t, RequireAgentRole(domain.AgentRoleAdmin), agentPrincipal(domain.AgentRoleAgent)), "FORBIDDEN")
	assertGuardCode(t, runGuard(t, RequireAgentRole(), customerPrincipal()), "FORBIDDEN")
	assertGuardCode(t, runGuard(t, RequireAgentRole(), nil), "UNAUTHORIZED")
}

func TestRequireAnyRole(t *testing.T) {
	t.Parallel()

	if err := runGuard(t, RequireAnyRole(), customerPrincipal()); err != nil {
		t.Errorf("customer rejected: %v", err)
	}
	assertGuardCode(t, runGuard(t, RequireAnyRole(), nil), "UNAUTHORIZED")
}
