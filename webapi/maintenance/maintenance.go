package maintenance

import (
	"errors"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/mapper"
	maintenancesvc "github.com/amirasaad/ledger/pkg/service/maintenance"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Routes registers the maintenance endpoints.
//
// Routes:
//   - POST /api/maintenance/recompute     : Rebuild snapshots of ?account= (all when absent) from ?from=.
//   - POST /api/maintenance/recompute-all : Rebuild every snapshot from scratch.
//   - GET  /api/maintenance/verify        : Report drift without repairing it.
func Routes(app *fiber.App, maintenanceSvc *maintenancesvc.Service) {
	g := app.Group("/api/maintenance")
	g.Post("/recompute", Recompute(maintenanceSvc))
	g.Post("/recompute-all", RecomputeAll(maintenanceSvc))
	g.Get("/verify", Verify(maintenanceSvc))
}

func parseAccount(c *fiber.Ctx) (*uuid.UUID, error) {
	raw := c.Query("account")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func Recompute(maintenanceSvc *maintenancesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID, err := parseAccount(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err, fiber.StatusBadRequest)
		}
		from, err := common.ParseDate(c, "from")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid date", err)
		}
		report, err := maintenanceSvc.RecomputeDaily(c.Context(), accountID, from)
		if err != nil {
			log.Errorf("Recompute failed: %v", err)
			return common.ProblemDetailsJSON(c, "Recompute failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Snapshots recomputed", mapper.MapReportToRead(report))
	}
}

func RecomputeAll(maintenanceSvc *maintenancesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := maintenanceSvc.RecomputeAll(c.Context())
		if err != nil {
			log.Errorf("Recompute failed: %v", err)
			return common.ProblemDetailsJSON(c, "Recompute failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Snapshots recomputed", mapper.MapReportToRead(report))
	}
}

// Verify answers 200 with the report when the snapshots match the ledger
// and 409 with the same report when they drifted.
func Verify(maintenanceSvc *maintenancesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID, err := parseAccount(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err, fiber.StatusBadRequest)
		}
		report, err := maintenanceSvc.Verify(c.Context(), accountID)
		switch {
		case errors.Is(err, domain.ErrDriftDetected):
			return common.SuccessResponseJSON(c, fiber.StatusConflict, "Drift detected", mapper.MapReportToRead(report))
		case err != nil:
			return common.ProblemDetailsJSON(c, "Verify failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Snapshots match the ledger", mapper.MapReportToRead(report))
	}
}
