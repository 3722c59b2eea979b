package serverutils

import (
	"ai-consultation-be/pkg/consultation"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the standard
// error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := StatusFor(err)
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}

		message := err.Error()
		if status == http.StatusInternalServerError && !exposed(err) {
			message = "internal server error"
		}

		return ctx.Status(status).JSON(ErrorResponse(status, message))
	}
}

func exposed(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) || errors.Is(err, consultation.ErrRenderingFailed)
}
