package apperrors

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced to API clients.
const (
	CodeNotFound            = "not_found"
	CodeForbidden           = "forbidden"
	CodeConflict            = "conflict"
	CodeInvalidArgument     = "invalid_argument"
	CodeGatewayUnavailable  = "gateway_unavailable"
	CodePaymentNotFound     = "payment_not_found"
	CodePaymentNotCompleted = "payment_not_completed"
	CodeInternal            = "internal_error"
)

// AppError is a domain error carrying the HTTP status it maps to.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError without an underlying cause.
func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// Wrap attaches a cause to a new AppError.
func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message, fiber.StatusNotFound)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, fiber.StatusForbidden)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message, fiber.StatusConflict)
}

func InvalidArgument(message string) *AppError {
	return New(CodeInvalidArgument, message, fiber.StatusBadRequest)
}

// GatewayUnavailable marks a transient gateway failure; callers may retry.
func GatewayUnavailable(err error) *AppError {
	return Wrap(err, CodeGatewayUnavailable, "payment gateway unavailable", fiber.StatusServiceUnavailable)
}

// Internal hides the underlying cause from the client.
func Internal(err error) *AppError {
	return Wrap(err, CodeInternal, "internal server error", fiber.StatusInternalServerError)
}

// Terminal payment matching/confirmation failures.
var (
	ErrPaymentNotFound     = New(CodePaymentNotFound, "no matching payment found", fiber.StatusNotFound)
	ErrPaymentNotCompleted = New(CodePaymentNotCompleted, "payment failed or not completed", fiber.StatusBadRequest)
)

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ErrorHandler translates errors into JSON responses. Domain errors keep
// their code and message; anything else is logged and becomes a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= fiber.StatusInternalServerError {
			log.Printf("[Error] %s %s: %v", c.Method(), c.Path(), err)
		}
		return c.Status(appErr.Status).JSON(fiber.Map{
			"error":   appErr.Code,
			"message": appErr.Message,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error":   "request_failed",
			"message": fiberErr.Message,
		})
	}

	log.Printf("[Error] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   CodeInternal,
		"message": "internal server error",
	})
}
