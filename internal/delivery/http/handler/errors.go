package handler

import (
	"errors"

	"ragchat-api/internal/domain/entity"

	"github.com/gofiber/fiber/v2"
)

// ValidationError carries per-field failures to the error handler.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string { return "validation failed" }

// ErrorHandler maps the domain error taxonomy onto HTTP statuses. Not-found
// and ownership mismatches share one shape so existence is never disclosed.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(valErr)
	}

	switch {
	case errors.Is(err, entity.ErrMissingQuery), errors.Is(err, entity.ErrEmptyDocument):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, entity.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}

	var ext *entity.ExternalError
	if errors.As(err, &ext) {
		if ext.Permanent {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream capability failed"})
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service temporarily unavailable"})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
