package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/observability"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// RegisterMiddlewares attaches the global chain: request timeout, then
// panic recovery and error rendering, then access logging. Order
// matters; the error renderer must wrap everything the logger sees.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware renders every error as the JSON envelope
// {"error":{code,message,details}}. Panics become INTERNAL_ERROR,
// fiber's own errors (unknown route, oversized body) keep their HTTP
// status, and anything else goes through the DomainError taxonomy.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}
			domainErr := resolveError(err)
			if metrics != nil {
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
			}
			if domainErr.HTTPStatus >= 500 {
				logger.Error("request failed", zap.Error(domainErr))
			}

			body := fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}
			if len(domainErr.Details) > 0 {
				body["details"] = domainErr.Details
			}
			c.Status(domainErr.HTTPStatus)
			_ = c.JSON(fiber.Map{"error": body})
			err = nil
		}()
		return c.Next()
	}
}

// resolveError maps fiber transport errors by their status before
// falling back to the taxonomy, so an unknown route stays a 404
// instead of becoming INTERNAL_ERROR.
func resolveError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < stdhttp.StatusInternalServerError {
		return &apperrors.DomainError{
			Code:       statusCode(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}
	return apperrors.ToDomainError(err)
}

func statusCode(status int) string {
	text := stdhttp.StatusText(status)
	if text == "" {
		return "REQUEST_FAILED"
	}
	return strings.ReplaceAll(strings.ToUpper(text), " ", "_")
}
