// Package testutils provides shared helpers for tests: throwaway SQLite
// databases with the ledger schema and HTTP request helpers for the fiber
// app.
package testutils

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amirasaad/ledger/infra"
	infrarepo "github.com/amirasaad/ledger/infra/repository"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory SQLite database, migrates it and closes
// it when the test ends. Every call gets its own database, so tests can run
// in parallel.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	cnf := &config.DB{Url: "file:" + uuid.NewString() + "?mode=memory&cache=shared"}
	db, err := infra.NewDBConnection(cnf, "test")
	require.NoError(t, err, "open test database")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewUoW returns a unit of work over a fresh test database.
func NewUoW(t testing.TB) *infrarepo.UoW {
	t.Helper()
	return infrarepo.NewUoW(NewDB(t))
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MakeRequest sends a request through app without a network listener and
// returns the response. A non-empty body is sent as JSON.
func MakeRequest(t testing.TB, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
