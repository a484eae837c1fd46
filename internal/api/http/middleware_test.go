package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/auth"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, time.Second)
	return app
}

func doRequest(t *testing.T, app *fiber.App, path string) (int, errorEnvelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var envelope errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp.StatusCode, envelope
}

func TestErrorMiddlewareRendersDomainErrors(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	app.Get("/forbidden", func(c *fiber.Ctx) error {
		return apperrors.NewForbidden("insufficient role")
	})

	status, envelope := doRequest(t, app, "/forbidden")
	if status != stdhttp.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}
	if envelope.Error.Code != "FORBIDDEN" {
		t.Errorf("code = %q, want FORBIDDEN", envelope.Error.Code)
	}
}

func TestErrorMiddlewareRendersGuardRejections(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	app.Get("/inbox/ping", auth.RequireAgentRole(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": "ok"})
	})

	status, envelope := doRequest(t, app, "/inbox/ping")
	if status != stdhttp.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
	if envelope.Error.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", envelope.Error.Code)
	}
}

func TestErrorMiddlewareKeepsTransportStatuses(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	status, envelope := doRequest(t, app, "/no/such/route")
	if status != stdhttp.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if envelope.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", envelope.Error.Code)
	}
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("handler exploded")
	})

	status, envelope := doRequest(t, app, "/boom")
	if status != stdhttp.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	if envelope.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", envelope.Error.Code)
	}
}
