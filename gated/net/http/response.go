package http

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Respond writes payload as JSON with status. Statuses outside the valid HTTP
// range are written as 500.
func Respond(c *fiber.Ctx, status int, payload any) error {
	if status < http.StatusContinue || status > 599 {
		status = http.StatusInternalServerError
	}

	return c.Status(status).JSON(payload)
}

// RespondError writes an ErrorResponse whose code is the HTTP status.
func RespondError(c *fiber.Ctx, status int, title, message string) error {
	return Respond(c, status, ErrorResponse{
		Code:    strconv.Itoa(status),
		Title:   title,
		Message: message,
	})
}

// OK sends an HTTP 200 OK response with a custom body.
func OK(c *fiber.Ctx, s any) error {
	return Respond(c, http.StatusOK, s)
}

// Created sends an HTTP 201 Created response with a custom body.
func Created(c *fiber.Ctx, s any) error {
	return Respond(c, http.StatusCreated, s)
}
