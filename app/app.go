// Package app builds the Fiber application serving the ledger API.
package app

import (
	"errors"
	"io"
	"strings"
	"time"

	pkgapp "github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/webapi/account"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/amirasaad/ledger/webapi/currency"
	"github.com/amirasaad/ledger/webapi/holder"
	"github.com/amirasaad/ledger/webapi/maintenance"
	"github.com/amirasaad/ledger/webapi/movement"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Options tunes the middleware. Zero values use the configured rate limit
// and discard the access log.
type Options struct {
	AccessLog io.Writer
}

// New registers every route over the services of a and returns the app.
func New(a *pkgapp.App, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "ledger",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	if opts.AccessLog != nil {
		app.Use(logger.New(logger.Config{
			Output:     opts.AccessLog,
			Format:     "${time} ${status} ${latency} ${method} ${path}\n",
			TimeFormat: time.RFC3339,
		}))
	}

	maxRequests, window := 100, time.Minute
	if a.Config != nil && a.Config.RateLimit != nil {
		maxRequests, window = a.Config.RateLimit.MaxRequests, a.Config.RateLimit.Window
	}
	app.Use(limiter.New(limiter.Config{
		Max:          maxRequests,
		Expiration:   window,
		KeyGenerator: clientKey,
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(c, "Too Many Requests", errors.New("rate limit exceeded"), fiber.StatusTooManyRequests)
		},
	}))
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Ledger is running")
	})

	holder.Routes(app, a.HolderService, a.MovementService)
	account.Routes(app, a.AccountService)
	movement.Routes(app, a.MovementService)
	currency.Routes(app, a.CurrencyService)
	maintenance.Routes(app, a.MaintenanceService)
	return app
}

// clientKey identifies the caller behind proxies: the first X-Forwarded-For
// entry, then X-Real-IP, then the peer address.
func clientKey(c *fiber.Ctx) string {
	if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
		if i := strings.Index(forwardedFor, ","); i != -1 {
			return strings.TrimSpace(forwardedFor[:i])
		}
		return strings.TrimSpace(forwardedFor)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}
