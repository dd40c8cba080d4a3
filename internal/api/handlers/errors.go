package handlers

import (
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/maheshrc27/feedqueue-api/internal/service"
)

const invalidRequestCode = "INVALID_REQUEST"

// ErrorHandler maps service and validation errors onto HTTP statuses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{"error": "internal server error"}

	var (
		fiberErr    *fiber.Error
		accessErr   *service.DataAccessError
		conflictErr *service.DataConflictError
		updateErr   *service.DataUpdateError
		domainErr   *goerrors.Error
	)
	switch {
	case errors.As(err, &fiberErr):
		code, body["error"] = fiberErr.Code, fiberErr.Message
	case errors.As(err, &accessErr):
		code, body["error"] = fiber.StatusNotFound, accessErr.Error()
	case errors.As(err, &conflictErr):
		code, body["error"] = fiber.StatusConflict, conflictErr.Error()
	case errors.As(err, &updateErr):
		body["error"] = updateErr.Error()
	case errors.As(err, &domainErr) && domainErr.Category == goerrors.CategoryValidation:
		code, body["error"] = fiber.StatusBadRequest, domainErr.Message
		if domainErr.TextCode != "" {
			body["code"] = domainErr.TextCode
		}
		if len(domainErr.ValidationErrors) > 0 {
			body["fields"] = domainErr.ValidationErrors
		}
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error(err.Error(), "method", c.Method(), "path", c.Path())
	}
	return c.Status(code).JSON(body)
}

// invalidRequest marks a request body that failed validation, keeping the
// per-field messages.
func invalidRequest(err error) error {
	var fields validation.Errors
	if errors.As(err, &fields) {
		return goerrors.FromOzzoValidation(err, "Invalid request").WithTextCode(invalidRequestCode)
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "Invalid request: "+err.Error()).WithTextCode(invalidRequestCode)
}

// NewErrorHandler wraps ErrorHandler and records failed mutations in the
// audit log.
func NewErrorHandler(audit *service.AppLogService) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		default:
			if audit != nil {
				audit.LogFailure(c.UserContext(), CurrentUser(c), c.Method()+" "+c.Route().Path, err, "path", c.Path())
			}
		}
		return ErrorHandler(c, err)
	}
}

func malformedBody() error {
	return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
}
