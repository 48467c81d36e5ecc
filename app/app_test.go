package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/testutils"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type APITestSuite struct {
	suite.Suite
	f   *testutils.Fixture
	app *fiber.App
}

func (s *APITestSuite) SetupTest() {
	s.f = testutils.NewFixture(s.T())
	s.f.Config.RateLimit = &config.RateLimit{MaxRequests: 1000, Window: time.Minute}
	s.app = New(s.f.App, Options{})
}

// call sends the request and decodes the success envelope's data into out.
func (s *APITestSuite) call(method, path, body string, status int, out any) {
	s.T().Helper()
	resp := testutils.MakeRequest(s.T(), s.app, method, path, body)
	defer resp.Body.Close() //nolint: errcheck
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Require().Equal(status, resp.StatusCode, string(raw))
	if out == nil {
		return
	}
	var env envelope
	s.Require().NoError(json.Unmarshal(raw, &env))
	s.Require().NoError(json.Unmarshal(env.Data, out))
}

func (s *APITestSuite) problem(method, path, body string, status int) common.ProblemDetails {
	s.T().Helper()
	resp := testutils.MakeRequest(s.T(), s.app, method, path, body)
	defer resp.Body.Close() //nolint: errcheck
	s.Require().Equal(status, resp.StatusCode)
	s.Equal("application/problem+json", resp.Header.Get("Content-Type"))
	var pd common.ProblemDetails
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&pd))
	s.Equal(status, pd.Status)
	return pd
}

type idOnly struct {
	ID string `json:"id"`
}

func (s *APITestSuite) TestLendingFlow() {
	var alice, bob idOnly
	s.call(http.MethodPost, "/api/holders", `{"key":"alice"}`, fiber.StatusCreated, &alice)
	s.call(http.MethodPost, "/api/holders", `{"key":"bob","name":"Bob"}`, fiber.StatusCreated, &bob)

	var cash, wallet idOnly
	s.call(http.MethodPost, "/api/accounts", fmt.Sprintf(
		`{"key":"alice:cash","holder_id":%q,"currency":"EUR","opening_balance":"100","opened_on":"2024-01-01"}`, alice.ID),
		fiber.StatusCreated, &cash)
	s.call(http.MethodPost, "/api/accounts", fmt.Sprintf(
		`{"key":"bob:wallet","holder_id":%q,"currency":"EUR","opened_on":"2024-01-01"}`, bob.ID),
		fiber.StatusCreated, &wallet)

	var posted struct {
		ID                string `json:"id"`
		Ordinal           int    `json:"ordinal"`
		CounterMovementID string `json:"counter_movement_id"`
	}
	s.call(http.MethodPost, "/api/movements", fmt.Sprintf(
		`{"date":"2024-03-01","entry_id":%q,"exit_id":%q,"amount":"40","concept":"loan"}`, wallet.ID, cash.ID),
		fiber.StatusCreated, &posted)
	s.NotEmpty(posted.CounterMovementID)

	var bal struct {
		Balance  string `json:"balance"`
		Currency string `json:"currency"`
	}
	s.call(http.MethodGet, "/api/accounts/"+cash.ID+"/balance?date=2024-03-01", "", fiber.StatusOK, &bal)
	s.Equal("60", bal.Balance)
	s.Equal("EUR", bal.Currency)

	var debt struct {
		Amount string `json:"amount"`
	}
	s.call(http.MethodGet, "/api/holders/"+bob.ID+"/debts/"+alice.ID, "", fiber.StatusOK, &debt)
	s.Equal("40", debt.Amount)

	var capital struct {
		Balance string `json:"balance"`
	}
	s.call(http.MethodGet, "/api/holders/"+alice.ID+"/capital", "", fiber.StatusOK, &capital)
	s.Equal("100", capital.Balance, "the claim on bob counts")

	var day []idOnly
	s.call(http.MethodGet, "/api/days/2024-03-01/movements", "", fiber.StatusOK, &day)
	s.Len(day, 2, "the movement and its counter-movement")

	pd := s.problem(http.MethodDelete, "/api/movements/"+posted.CounterMovementID, "", fiber.StatusForbidden)
	s.Equal("Failed to delete movement", pd.Title)

	s.call(http.MethodPatch, "/api/movements/"+posted.ID, `{"amount":"10"}`, fiber.StatusOK, nil)
	s.call(http.MethodGet, "/api/holders/"+bob.ID+"/debts/"+alice.ID, "", fiber.StatusOK, &debt)
	s.Equal("10", debt.Amount)

	var report struct {
		Accounts int   `json:"accounts"`
		Drift    []any `json:"drift"`
	}
	s.call(http.MethodGet, "/api/maintenance/verify", "", fiber.StatusOK, &report)
	s.Empty(report.Drift)
	s.Positive(report.Accounts)

	s.call(http.MethodDelete, "/api/movements/"+posted.ID, "", fiber.StatusOK, nil)
	var rels []any
	s.call(http.MethodGet, "/api/holders/"+alice.ID+"/relations", "", fiber.StatusOK, &rels)
	s.Empty(rels)
}

func (s *APITestSuite) TestTreeEndpoints() {
	alice := s.f.Holder("alice")
	bank := s.f.Leaf(alice.ID, "bank", money.EUR, "100")

	var children []idOnly
	s.call(http.MethodPost, "/api/accounts/"+bank.ID.String()+"/split",
		`{"as_of":"2024-02-01","children":[{"key":"bank:current","opening_balance":"70"},{"key":"bank:savings","opening_balance":"30"}]}`,
		fiber.StatusCreated, &children)
	s.Len(children, 2)

	var branch struct {
		Kind        string `json:"kind"`
		ConvertedOn string `json:"converted_on"`
	}
	s.call(http.MethodGet, "/api/accounts/"+bank.ID.String(), "", fiber.StatusOK, &branch)
	s.Equal("branch", branch.Kind)
	s.Equal("2024-02-01", branch.ConvertedOn)

	var listed []idOnly
	s.call(http.MethodGet, "/api/accounts/"+bank.ID.String()+"/children", "", fiber.StatusOK, &listed)
	s.Len(listed, 2)
	s.call(http.MethodGet, "/api/accounts/"+children[0].ID+"/ancestors", "", fiber.StatusOK, &listed)
	s.Require().Len(listed, 1)
	s.Equal(bank.ID.String(), listed[0].ID)
	s.call(http.MethodGet, "/api/accounts/"+children[0].ID+"/siblings", "", fiber.StatusOK, &listed)
	s.Len(listed, 1)
	s.call(http.MethodGet, "/api/accounts?holder="+alice.ID.String(), "", fiber.StatusOK, &listed)
	s.Len(listed, 3)

	pd := s.problem(http.MethodPost, "/api/accounts/"+bank.ID.String()+"/split", `{"children":[{"key":"bank:x"}]}`, fiber.StatusUnprocessableEntity)
	s.Contains(pd.Detail, "invalid account operation")

	s.call(http.MethodPost, "/api/accounts/"+children[1].ID+"/deactivate", "", fiber.StatusOK, nil)
	s.problem(http.MethodPost, "/api/movements",
		fmt.Sprintf(`{"date":"2024-03-01","entry_id":%q,"amount":"1"}`, children[1].ID), fiber.StatusBadRequest)
}

func (s *APITestSuite) TestRates() {
	s.call(http.MethodPost, "/api/rates", `{"currency":"USD","date":"2024-01-01","buy":"0.90","sell":"0.92"}`, fiber.StatusCreated, nil)

	var cross struct {
		Rate string `json:"rate"`
		Side string `json:"side"`
	}
	s.call(http.MethodGet, "/api/rates/USD/EUR?date=2024-02-01&side=sell", "", fiber.StatusOK, &cross)
	s.Equal("0.9", cross.Rate)
	s.Equal("sell", cross.Side)

	s.problem(http.MethodGet, "/api/rates/USD/EUR?date=2023-01-01", "", fiber.StatusUnprocessableEntity)
	s.problem(http.MethodGet, "/api/rates/USD/EUR?side=up", "", fiber.StatusBadRequest)
	s.problem(http.MethodPost, "/api/rates", `{"currency":"EUR","buy":"1","sell":"1"}`, fiber.StatusBadRequest)
	s.problem(http.MethodPost, "/api/rates", `{"currency":"usd"}`, fiber.StatusBadRequest)

	var rates []struct {
		Date string `json:"date"`
	}
	s.call(http.MethodGet, "/api/rates/USD", "", fiber.StatusOK, &rates)
	s.Require().Len(rates, 1)
	s.Equal("2024-01-01", rates[0].Date)
}

func (s *APITestSuite) TestProblemDetails() {
	s.problem(http.MethodGet, "/api/accounts/not-a-uuid", "", fiber.StatusBadRequest)
	s.problem(http.MethodGet, "/api/accounts/00000000-0000-0000-0000-000000000000", "", fiber.StatusNotFound)
	s.problem(http.MethodPost, "/api/holders", `{`, fiber.StatusBadRequest)
	s.problem(http.MethodPost, "/api/holders", `{"name":"no key"}`, fiber.StatusBadRequest)
	s.problem(http.MethodGet, "/api/accounts/00000000-0000-0000-0000-000000000000/balance?date=yesterday", "", fiber.StatusBadRequest)

	s.call(http.MethodPost, "/api/holders", `{"key":"alice"}`, fiber.StatusCreated, nil)
	s.problem(http.MethodPost, "/api/holders", `{"key":"alice"}`, fiber.StatusConflict)
}

func (s *APITestSuite) TestMaintenanceEndpoints() {
	alice := s.f.Holder("alice")
	cash := s.f.Leaf(alice.ID, "cash", money.EUR, "10")
	s.f.Move("2024-03-01", nil, cash, "1")

	var report struct {
		Accounts int    `json:"accounts"`
		Last     string `json:"last"`
	}
	s.call(http.MethodPost, "/api/maintenance/recompute?account="+cash.ID.String()+"&from=2024-02-01", "", fiber.StatusOK, &report)
	s.Equal(1, report.Accounts)
	s.Equal(cash.ID.String(), report.Last)

	s.call(http.MethodPost, "/api/maintenance/recompute-all", "", fiber.StatusOK, &report)
	s.Equal(1, report.Accounts)

	daily, err := s.f.Deps.Uow.DailyRepository()
	s.Require().NoError(err)
	s.f.Move("2024-03-02", nil, cash, "1")
	s.Require().NoError(daily.Delete(s.f.Ctx, cash.ID, day.MustParse("2024-03-02")))
	s.call(http.MethodGet, "/api/maintenance/verify?account="+cash.ID.String(), "", fiber.StatusConflict, nil)
	s.problem(http.MethodPost, "/api/maintenance/recompute?account=x", "", fiber.StatusBadRequest)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestRateLimit(t *testing.T) {
	f := testutils.NewFixture(t)
	f.Config.RateLimit = &config.RateLimit{MaxRequests: 5, Window: time.Second}
	app := New(f.App, Options{})

	for i := 0; i < 6; i++ {
		resp := testutils.MakeRequest(t, app, fiber.MethodGet, "/", "")
		_ = resp.Body.Close()
		if i < 5 {
			assert.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i+1)
		} else {
			assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode, "request %d", i+1)
		}
	}

	time.Sleep(1100 * time.Millisecond)
	resp := testutils.MakeRequest(t, app, fiber.MethodGet, "/", "")
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "the window reset")
}

func TestClientKey(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(clientKey(c)) })

	cases := map[string]string{
		"X-Forwarded-For": "10.0.0.1",
		"X-Real-IP":       "10.0.0.2",
	}
	for header, want := range cases {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set(header, want+", 192.168.0.1")
		if header == "X-Real-IP" {
			req.Header.Set(header, want)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		assert.Equal(t, want, string(body), header)
	}
}
