package movement

import (
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/mapper"
	movementsvc "github.com/amirasaad/ledger/pkg/service/movement"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Routes registers the movement ledger endpoints.
//
// Routes:
//   - POST   /api/movements            : Post a movement.
//   - GET    /api/movements/:id        : Fetch a movement.
//   - PATCH  /api/movements/:id        : Edit a user movement.
//   - DELETE /api/movements/:id        : Delete a user movement.
//   - GET    /api/days/:date/movements : A day's movements by ordinal.
//   - GET    /api/days/:date/ordinals  : The ordinal range of a day.
func Routes(app *fiber.App, movementSvc *movementsvc.Service) {
	g := app.Group("/api/movements")
	g.Post("/", CreateMovement(movementSvc))
	g.Get("/:id", GetMovement(movementSvc))
	g.Patch("/:id", UpdateMovement(movementSvc))
	g.Delete("/:id", DeleteMovement(movementSvc))

	days := app.Group("/api/days")
	days.Get("/:date/movements", ListDay(movementSvc))
	days.Get("/:date/ordinals", OrdinalRange(movementSvc))
}

// CreateMovement returns a Fiber handler posting a movement. Every balance
// from its position onwards is updated before the response is written.
// @Summary Post a movement
// @Description A negative amount swaps the legs. An ordinal inserts the movement at that position of its day.
// @Tags movements
// @Accept json
// @Produce json
// @Param request body dto.MovementCreate true "Movement"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /api/movements [post]
func CreateMovement(movementSvc *movementsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[dto.MovementCreate](c)
		if input == nil {
			return err
		}
		m, err := movementSvc.Create(c.Context(), *input)
		if err != nil {
			log.Errorf("Failed to post movement: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to post movement", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Movement posted", mapper.MapMovementToRead(m))
	}
}

func GetMovement(movementSvc *movementsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid movement ID", err, fiber.StatusBadRequest)
		}
		m, err := movementSvc.Get(c.Context(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Movement not found", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Movement fetched", mapper.MapMovementToRead(m))
	}
}

// UpdateMovement applies a partial edit.
// @Summary Edit a movement
// @Tags movements
// @Accept json
// @Produce json
// @Param id path string true "Movement ID"
// @Param request body dto.MovementUpdate true "Changed fields"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.ProblemDetails "Automatic movement"
// @Router /api/movements/{id} [patch]
func UpdateMovement(movementSvc *movementsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid movement ID", err, fiber.StatusBadRequest)
		}
		input, err := common.BindAndValidate[dto.MovementUpdate](c)
		if input == nil {
			return err
		}
		m, err := movementSvc.Update(c.Context(), id, *input)
		if err != nil {
			log.Errorf("Failed to update movement %s: %v", id, err)
			return common.ProblemDetailsJSON(c, "Failed to update movement", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Movement updated", mapper.MapMovementToRead(m))
	}
}

func DeleteMovement(movementSvc *movementsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid movement ID", err, fiber.StatusBadRequest)
		}
		if err := movementSvc.Delete(c.Context(), id); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to delete movement", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Movement deleted", nil)
	}
}

func ListDay(movementSvc *movementsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := day.Parse(c.Params("date"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid date", err, fiber.StatusBadRequest)
		}
		ms, err := movementSvc.ByDay(c.Context(), d)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list movements", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Movements fetched", mapper.MapMovementsToRead(ms))
	}
}

func OrdinalRange(movementSvc *movementsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := day.Parse(c.Params("date"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid date", err, fiber.StatusBadRequest)
		}
		lo, hi, count, err := movementSvc.OrdinalRange(c.Context(), d)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to read ordinals", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Ordinals fetched", fiber.Map{"min": lo, "max": hi, "count": count})
	}
}
