package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorToStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, fiber.StatusBadRequest},
		{fmt.Errorf("x: %w", domain.ErrNotFound), fiber.StatusNotFound},
		{domain.ErrAlreadyExists, fiber.StatusConflict},
		{fmt.Errorf("%w: amount", domain.ErrValidation), fiber.StatusBadRequest},
		{fmt.Errorf("%w: %w", domain.ErrInvalidAccountOperation, domain.ErrValidation), fiber.StatusBadRequest},
		{domain.ErrInvalidAccountOperation, fiber.StatusUnprocessableEntity},
		{domain.ErrCurrencyResolution, fiber.StatusUnprocessableEntity},
		{domain.ErrAutomaticMovement, fiber.StatusForbidden},
		{fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorToStatusCode(tc.err), "%v", tc.err)
	}
}

func TestProblemDetailsJSON(t *testing.T) {
	app := fiber.New()
	app.Get("/missing", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Account not found", domain.ErrNotFound)
	})
	app.Get("/override", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Invalid", errors.New("raw"), "friendly", fiber.StatusTeapot)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/missing?x=1", nil), -1)
	require.NoError(t, err)
	var pd ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "/missing?x=1", pd.Instance)
	assert.Equal(t, domain.ErrNotFound.Error(), pd.Detail)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/override", nil), -1)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	assert.Equal(t, fiber.StatusTeapot, pd.Status)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "friendly", pd.Detail)
}

func TestParsePoint(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		at, err := ParsePoint(c)
		if err != nil {
			return ProblemDetailsJSON(c, "Invalid balance point", err)
		}
		return c.SendString(at.String())
	})

	cases := map[string]int{
		"/":                     fiber.StatusOK,
		"/?date=2024-03-01":     fiber.StatusOK,
		"/?date=03/01/2024":     fiber.StatusBadRequest,
		"/?movement=not-a-uuid": fiber.StatusBadRequest,
	}
	for path, want := range cases {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}
