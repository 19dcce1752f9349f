package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "github.com/ranmrojas/nakermotosstore-sub001/internal/log"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/remote"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/repos"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/services"
)

const genericError = "Something went wrong. Please try again."

// ErrorHandler logs the failure and answers with JSON. Fiber errors keep
// their message, so upstream outages stay distinguishable; plain 500s and
// unexpected errors never leak internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := genericError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code != fiber.StatusInternalServerError {
			msg = fe.Message
		}
	}
	c.Status(code)
	if code >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	}
	return c.JSON(fiber.Map{"error": msg})
}

// upstream maps service errors to HTTP errors for the catalog routes.
func upstream(c *fiber.Ctx, action string, err error) error {
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		return fiber.NewError(fiber.StatusNotFound, "This item is no longer available")
	case errors.Is(err, remote.ErrRemoteFetchFailed), errors.Is(err, remote.ErrMalformedResponse):
		applog.Error(c, action, err, nil)
		return fiber.NewError(fiber.StatusBadGateway, "Catalog temporarily unavailable")
	case errors.Is(err, repos.ErrStoreUnavailable):
		applog.Error(c, action, err, nil)
		return fiber.NewError(fiber.StatusServiceUnavailable, "Catalog cache unavailable")
	default:
		return err
	}
}
