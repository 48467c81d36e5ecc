package main

import (
	"context"
	"flag"
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

type balanceCmd struct {
	s        *session
	account  string
	date     string
	movement string
	currency string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print the balance of an account" }
func (*balanceCmd) Usage() string {
	return `ledgerctl balance -account <key|id> [-date <YYYY-MM-DD> | -movement <id>] [-currency <code>]

  Prints the latest balance, the closing balance of a day or the balance
  right after a movement, optionally converted to another currency.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account key or ID.")
	f.StringVar(&c.date, "date", "", "Closing balance of this day.")
	f.StringVar(&c.movement, "movement", "", "Balance right after this movement.")
	f.StringVar(&c.currency, "currency", "", "Convert to this currency.")
}

func (c *balanceCmd) point() (balance.Point, error) {
	switch {
	case c.date != "" && c.movement != "":
		return balance.Point{}, fmt.Errorf("-date and -movement are exclusive")
	case c.movement != "":
		id, err := uuid.Parse(c.movement)
		if err != nil {
			return balance.Point{}, fmt.Errorf("invalid -movement: %w", err)
		}
		return balance.AtMovement(id), nil
	case c.date != "":
		d, err := day.Parse(c.date)
		if err != nil {
			return balance.Point{}, fmt.Errorf("invalid -date: %w", err)
		}
		return balance.AtDay(d), nil
	}
	return balance.Now(), nil
}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		return c.s.fail(fmt.Errorf("-account is required"))
	}
	at, err := c.point()
	if err != nil {
		return c.s.fail(err)
	}
	var code money.Code
	if c.currency != "" {
		if code, err = money.ParseCode(c.currency); err != nil {
			return c.s.fail(err)
		}
	}
	a, err := c.s.app()
	if err != nil {
		return c.s.fail(err)
	}
	id, err := resolveAccount(ctx, a, c.account)
	if err != nil {
		return c.s.fail(err)
	}
	bal, err := a.AccountService.Balance(ctx, *id, at, code)
	if err != nil {
		return c.s.fail(err)
	}
	fmt.Fprintf(c.s.out, "%s at %s: %s\n", c.account, at, display(bal))
	return subcommands.ExitSuccess
}

// display formats an amount with the currency's grapheme and grouping.
func display(m money.Money) string {
	code := string(m.CurrencyCode())
	if gomoney.GetCurrency(code) == nil {
		return m.String()
	}
	return gomoney.New(m.Amount(), code).Display()
}
