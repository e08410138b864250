package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// StdResponse is the envelope every endpoint answers with.
type StdResponse[T any] struct {
	Body  T       `json:"body"`
	Error *string `json:"error,omitempty"`
}

func createResponse[T any](body T, err error) StdResponse[T] {
	if err != nil {
		errMsg := err.Error()
		return StdResponse[T]{Body: body, Error: &errMsg}
	}
	return StdResponse[T]{Body: body}
}

func fiberErrHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	log.Error().
		Err(err).
		Int("status_code", code).
		Str("path", ctx.Path()).
		Str("method", ctx.Method()).
		Msg("fiber error handler triggered")

	return ctx.Status(code).JSON(createResponse(map[string]any{}, err))
}
