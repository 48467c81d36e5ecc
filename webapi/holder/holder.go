package holder

import (
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/mapper"
	holdersvc "github.com/amirasaad/ledger/pkg/service/holder"
	movementsvc "github.com/amirasaad/ledger/pkg/service/movement"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Routes registers the holder endpoints.
func Routes(app *fiber.App, holderSvc *holdersvc.Service, movementSvc *movementsvc.Service) {
	g := app.Group("/api/holders")
	g.Post("/", CreateHolder(holderSvc))
	g.Get("/", ListHolders(holderSvc))
	g.Get("/:id", GetHolder(holderSvc))
	g.Get("/:id/capital", GetCapital(holderSvc))
	g.Get("/:id/relations", ListRelations(holderSvc))
	g.Get("/:id/debts/:other", GetDebt(holderSvc))
	g.Get("/:id/movements", ListMovements(movementSvc))
}

// CreateHolder returns a Fiber handler creating a holder.
// @Summary Create a holder
// @Tags holders
// @Accept json
// @Produce json
// @Param request body dto.HolderCreate true "Holder"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Router /api/holders [post]
func CreateHolder(holderSvc *holdersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[dto.HolderCreate](c)
		if input == nil {
			return err
		}
		h, err := holderSvc.Create(c.Context(), *input)
		if err != nil {
			log.Errorf("Failed to create holder: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to create holder", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Holder created", mapper.MapHolderToRead(h))
	}
}

func ListHolders(holderSvc *holdersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		holders, err := holderSvc.List(c.Context())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list holders", err)
		}
		out := make([]dto.HolderRead, 0, len(holders))
		for _, h := range holders {
			out = append(out, mapper.MapHolderToRead(h))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Holders fetched", out)
	}
}

func GetHolder(holderSvc *holdersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid holder ID", err, fiber.StatusBadRequest)
		}
		h, err := holderSvc.Get(c.Context(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Holder not found", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Holder fetched", mapper.MapHolderToRead(h))
	}
}

// GetCapital returns what a holder is worth, claims on other holders
// included.
// @Summary Holder capital
// @Tags holders
// @Produce json
// @Param id path string true "Holder ID"
// @Param date query string false "Day (YYYY-MM-DD)"
// @Param movement query string false "Movement ID"
// @Param currency query string false "Currency, the base currency by default"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /api/holders/{id}/capital [get]
func GetCapital(holderSvc *holdersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid holder ID", err, fiber.StatusBadRequest)
		}
		at, err := common.ParsePoint(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid balance point", err)
		}
		code, err := common.ParseCurrency(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid currency", err)
		}
		capital, err := holderSvc.Capital(c.Context(), id, at, code)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to compute capital", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Capital fetched", mapper.MapBalanceToRead(id, at, capital))
	}
}

func ListRelations(holderSvc *holdersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid holder ID", err, fiber.StatusBadRequest)
		}
		rels, err := holderSvc.Relations(c.Context(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list relations", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Relations fetched", mapper.MapRelationsToRead(rels))
	}
}

// GetDebt returns how much :id owes :other; negative when :other owes :id.
func GetDebt(holderSvc *holdersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid holder ID", err, fiber.StatusBadRequest)
		}
		other, err := uuid.Parse(c.Params("other"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid holder ID", err, fiber.StatusBadRequest)
		}
		debt, err := holderSvc.DebtWith(c.Context(), id, other)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to read debt", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Debt fetched", dto.RelationRead{
			Debtor:   id,
			Creditor: other,
			Amount:   debt.Decimal(),
			Currency: string(debt.CurrencyCode()),
		})
	}
}

// ListMovements lists every movement touching an account of the holder.
func ListMovements(movementSvc *movementsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid holder ID", err, fiber.StatusBadRequest)
		}
		ms, err := movementSvc.ByHolder(c.Context(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list movements", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Movements fetched", mapper.MapMovementsToRead(ms))
	}
}
