package currency

import (
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/mapper"
	"github.com/amirasaad/ledger/pkg/money"
	currencysvc "github.com/amirasaad/ledger/pkg/service/currency"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Routes registers the exchange rate endpoints.
func Routes(app *fiber.App, currencySvc *currencysvc.Service) {
	g := app.Group("/api/rates")
	g.Post("/", CreateRate(currencySvc))
	g.Get("/base", GetBase(currencySvc))
	g.Get("/:code", ListRates(currencySvc))
	g.Get("/:code/:other", CrossRate(currencySvc))
}

// CreateRate stores the buy and sell quote of a currency for a day.
// @Summary Record a rate
// @Tags rates
// @Accept json
// @Produce json
// @Param request body dto.RateCreate true "Quote against the base currency"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Router /api/rates [post]
func CreateRate(currencySvc *currencysvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[dto.RateCreate](c)
		if input == nil {
			return err
		}
		r, err := currencySvc.CreateRate(c.Context(), *input)
		if err != nil {
			log.Errorf("Failed to store rate: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to store rate", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Rate stored", mapper.MapRateToRead(r))
	}
}

func GetBase(currencySvc *currencysvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Base currency", fiber.Map{"currency": currencySvc.Base()})
	}
}

func ListRates(currencySvc *currencysvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code, err := money.ParseCode(c.Params("code"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid currency", err, fiber.StatusBadRequest)
		}
		rates, err := currencySvc.Rates(c.Context(), code)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list rates", err)
		}
		out := make([]dto.RateRead, 0, len(rates))
		for _, r := range rates {
			out = append(out, mapper.MapRateToRead(r))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rates fetched", out)
	}
}

// CrossRate resolves how many units of :other one unit of :code is worth on
// ?date= (today by default), on the ?side=buy|sell of the quote.
// @Summary Resolve a cross rate
// @Tags rates
// @Produce json
// @Param code path string true "Currency"
// @Param other path string true "Currency to express it in"
// @Param date query string false "Day (YYYY-MM-DD)"
// @Param side query string false "buy or sell"
// @Success 200 {object} common.Response
// @Failure 422 {object} common.ProblemDetails "No rate on or before the day"
// @Router /api/rates/{code}/{other} [get]
func CrossRate(currencySvc *currencysvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code, err := money.ParseCode(c.Params("code"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid currency", err, fiber.StatusBadRequest)
		}
		other, err := money.ParseCode(c.Params("other"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid currency", err, fiber.StatusBadRequest)
		}
		on := day.Today()
		if d, err := common.ParseDate(c, "date"); err != nil {
			return common.ProblemDetailsJSON(c, "Invalid date", err)
		} else if d != nil {
			on = *d
		}
		dir := exchange.Buy
		switch c.Query("side", "buy") {
		case "buy":
		case "sell":
			dir = exchange.Sell
		default:
			return common.ProblemDetailsJSON(c, "Invalid side", nil, "side must be buy or sell", fiber.StatusBadRequest)
		}
		rate, err := currencySvc.RateAsOf(c.Context(), code, other, on, dir)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to resolve rate", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rate resolved", fiber.Map{
			"from": code, "to": other, "date": on, "side": dir.String(), "rate": rate,
		})
	}
}
