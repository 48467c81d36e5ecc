// Package common holds the response envelope, RFC 9457 problem details and
// request binding shared by the HTTP handlers.
package common

import (
	"errors"
	"fmt"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Errors   any    `json:"errors,omitempty"`
}

// SuccessResponseJSON writes data wrapped in a Response.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// ProblemDetailsJSON writes an RFC 9457 problem. The status comes from the
// first int in extra or else from err; a string in extra overrides the
// detail taken from err.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, extra ...any) error {
	status := ErrorToStatusCode(err)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	for _, e := range extra {
		switch v := e.(type) {
		case int:
			status = v
		case string:
			detail = v
		}
	}
	return c.Status(status).JSON(ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.OriginalURL(),
	}, "application/problem+json")
}

// ErrorToStatusCode maps domain errors to HTTP status codes.
func ErrorToStatusCode(err error) int {
	var fe *fiber.Error
	switch {
	case err == nil:
		return fiber.StatusBadRequest
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidAccountOperation),
		errors.Is(err, domain.ErrCurrencyResolution):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAutomaticMovement):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrDriftDetected):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it. On failure it
// writes the problem response and returns nil with the error.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid request body", err, fiber.StatusBadRequest)
	}
	if err := dto.Validate(input); err != nil {
		return nil, ProblemDetailsJSON(c, "Validation failed", err)
	}
	return &input, nil
}

// ParseDate reads an optional YYYY-MM-DD query parameter.
func ParseDate(c *fiber.Ctx, key string) (*day.Date, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := day.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrValidation, key, err)
	}
	return &d, nil
}

// ParsePoint reads the balance point from the "movement" or "date" query
// parameter; neither means now.
func ParsePoint(c *fiber.Ctx) (balance.Point, error) {
	if raw := c.Query("movement"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return balance.Point{}, fmt.Errorf("%w: movement: %w", domain.ErrValidation, err)
		}
		return balance.AtMovement(id), nil
	}
	d, err := ParseDate(c, "date")
	if err != nil || d == nil {
		return balance.Now(), err
	}
	return balance.AtDay(*d), nil
}

// ParseCurrency reads an optional "currency" query parameter.
func ParseCurrency(c *fiber.Ctx) (money.Code, error) {
	raw := c.Query("currency")
	if raw == "" {
		return "", nil
	}
	code, err := money.ParseCode(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return code, nil
}
