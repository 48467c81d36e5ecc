package account

import (
	"context"
	"fmt"

	"github.com/amirasaad/ledger/pkg/domain"
	domainaccount "github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/mapper"
	accountsvc "github.com/amirasaad/ledger/pkg/service/account"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Routes registers the account tree endpoints.
//
// Routes:
//   - POST   /api/accounts                     : Create a root leaf account.
//   - GET    /api/accounts                     : List accounts, optionally of one holder.
//   - GET    /api/accounts/:id                 : Fetch an account.
//   - DELETE /api/accounts/:id                 : Delete an account nothing references.
//   - GET    /api/accounts/:id/balance         : Balance at a movement, a day or now.
//   - GET    /api/accounts/:id/movements       : Movements of the subtree.
//   - GET    /api/accounts/:id/children        : Direct children.
//   - GET    /api/accounts/:id/ancestors       : Parent chain up to the root.
//   - GET    /api/accounts/:id/siblings        : Accounts sharing the parent.
//   - POST   /api/accounts/:id/split           : Turn a leaf into a branch.
//   - POST   /api/accounts/:id/children        : Add a child to a branch.
//   - PUT    /api/accounts/:id/conversion-day  : Move a branch's conversion day.
//   - POST   /api/accounts/:id/deactivate      : Deactivate an account.
//   - POST   /api/accounts/:id/reactivate      : Reactivate an account.
func Routes(app *fiber.App, accountSvc *accountsvc.Service) {
	g := app.Group("/api/accounts")
	g.Post("/", CreateAccount(accountSvc))
	g.Get("/", ListAccounts(accountSvc))
	g.Get("/:id", GetAccount(accountSvc))
	g.Delete("/:id", DeleteAccount(accountSvc))
	g.Get("/:id/balance", GetBalance(accountSvc))
	g.Get("/:id/movements", ListMovements(accountSvc))
	g.Get("/:id/children", Related(accountSvc.Children))
	g.Get("/:id/ancestors", Related(accountSvc.Ancestors))
	g.Get("/:id/siblings", Related(accountSvc.Siblings))
	g.Post("/:id/split", Split(accountSvc))
	g.Post("/:id/children", AddChild(accountSvc))
	g.Put("/:id/conversion-day", SetConversionDay(accountSvc))
	g.Post("/:id/deactivate", SetActive(accountSvc, false))
	g.Post("/:id/reactivate", SetActive(accountSvc, true))
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: account ID must be a valid UUID", domain.ErrValidation)
	}
	return id, nil
}

// CreateAccount returns a Fiber handler creating a root leaf account, with
// an opening movement when an opening balance is given.
// @Summary Create an account
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body dto.AccountCreate true "Account"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Router /api/accounts [post]
func CreateAccount(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[dto.AccountCreate](c)
		if input == nil {
			return err
		}
		a, err := accountSvc.CreateLeaf(c.Context(), *input)
		if err != nil {
			log.Errorf("Failed to create account: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to create account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Account created", mapper.MapAccountToRead(a))
	}
}

// ListAccounts lists every account, or those of ?holder=.
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Param holder query string false "Holder ID"
// @Success 200 {object} common.Response
// @Router /api/accounts [get]
func ListAccounts(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var holderID *uuid.UUID
		if raw := c.Query("holder"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return common.ProblemDetailsJSON(c, "Invalid holder ID", err, fiber.StatusBadRequest)
			}
			holderID = &id
		}
		accounts, err := accountSvc.List(c.Context(), holderID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list accounts", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Accounts fetched", mapper.MapAccountsToRead(accounts))
	}
}

// GetAccount fetches one account.
// @Summary Get an account
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.ProblemDetails
// @Router /api/accounts/{id} [get]
func GetAccount(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err)
		}
		a, err := accountSvc.Get(c.Context(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Account not found", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account fetched", mapper.MapAccountToRead(a))
	}
}

// DeleteAccount deletes an account no movement or child refers to.
func DeleteAccount(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err)
		}
		if err := accountSvc.Delete(c.Context(), id); err != nil {
			log.Errorf("Failed to delete account %s: %v", id, err)
			return common.ProblemDetailsJSON(c, "Failed to delete account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account deleted", nil)
	}
}

// GetBalance reads the balance of an account.
// @Summary Account balance
// @Description Balance right after ?movement=, at the close of ?date= or now, optionally converted to ?currency=.
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Param movement query string false "Movement ID"
// @Param date query string false "Day (YYYY-MM-DD)"
// @Param currency query string false "Target currency"
// @Success 200 {object} common.Response
// @Failure 422 {object} common.ProblemDetails "No rate to convert with"
// @Router /api/accounts/{id}/balance [get]
func GetBalance(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err)
		}
		at, err := common.ParsePoint(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid balance point", err)
		}
		code, err := common.ParseCurrency(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid currency", err)
		}
		bal, err := accountSvc.Balance(c.Context(), id, at, code)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to read balance", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Balance fetched", mapper.MapBalanceToRead(id, at, bal))
	}
}

// ListMovements lists the movements of an account's subtree between the
// inclusive ?from= and ?to= days.
func ListMovements(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err)
		}
		from, err := common.ParseDate(c, "from")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid range", err)
		}
		to, err := common.ParseDate(c, "to")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid range", err)
		}
		ms, err := accountSvc.Movements(c.Context(), id, from, to)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list movements", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Movements fetched", mapper.MapMovementsToRead(ms))
	}
}

// TreeQuery is one of the account service's navigation queries.
type TreeQuery func(ctx context.Context, id uuid.UUID) ([]*domainaccount.Account, error)

// Related serves one of the tree navigation queries.
func Related(query TreeQuery) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err)
		}
		accounts, err := query(c.Context(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to navigate the tree", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Accounts fetched", mapper.MapAccountsToRead(accounts))
	}
}

// Split turns a leaf into a branch over the given children.
// @Summary Split an account
// @Description The leaf's balance on as_of moves to the children, whose openings must add up to it.
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body dto.AccountSplit true "Children"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /api/accounts/{id}/split [post]
func Split(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err)
		}
		input, err := common.BindAndValidate[dto.AccountSplit](c)
		if input == nil {
			return err
		}
		children, err := accountSvc.Split(c.Context(), id, *input)
		if err != nil {
			log.Errorf("Failed to split account %s: %v", id, err)
			return common.ProblemDetailsJSON(c, "Failed to split account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Account split", mapper.MapAccountsToRead(children))
	}
}

// AddChild adds a leaf under a branch.
func AddChild(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err)
		}
		input, err := common.BindAndValidate[dto.ChildCreate](c)
		if input == nil {
			return err
		}
		child, err := accountSvc.AddChild(c.Context(), id, *input)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to add child", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Child added", mapper.MapAccountToRead(child))
	}
}

// SetConversionDay moves the day a branch stopped being a leaf.
func SetConversionDay(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err)
		}
		input, err := common.BindAndValidate[ConversionDayRequest](c)
		if input == nil {
			return err
		}
		if input.Date.IsZero() {
			return common.ProblemDetailsJSON(c, "Validation failed", nil, "date is required", fiber.StatusBadRequest)
		}
		if err := accountSvc.SetConversionDay(c.Context(), id, input.Date); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to move the conversion day", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Conversion day updated", nil)
	}
}

// SetActive deactivates or reactivates an account.
func SetActive(accountSvc *accountsvc.Service, active bool) fiber.Handler {
	change, done := accountSvc.Deactivate, "Account deactivated"
	if active {
		change, done = accountSvc.Reactivate, "Account reactivated"
	}
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err)
		}
		if err := change(c.Context(), id); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to change account state", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, done, nil)
	}
}
