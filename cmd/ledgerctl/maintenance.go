package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/amirasaad/ledger/infra"
	pkgapp "github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/service/maintenance"
	"github.com/fatih/color"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

type recomputeCmd struct {
	s       *session
	account string
	from    string
}

func (*recomputeCmd) Name() string { return "recompute-daily" }
func (*recomputeCmd) Synopsis() string {
	return "rebuild the stored balances of one or every account"
}
func (*recomputeCmd) Usage() string {
	return `ledgerctl recompute-daily [-account <key|id>] [-from <YYYY-MM-DD>]

  Rebuilds the per-movement and daily balance rows from the movements.
  Rows before -from are kept, so a failed run can restart from the last
  account reported.
`
}

func (c *recomputeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account key or ID. Every account when empty.")
	f.StringVar(&c.from, "from", "", "First day to rebuild. From the start when empty.")
}

func (c *recomputeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.s.app()
	if err != nil {
		return c.s.fail(err)
	}
	id, err := resolveAccount(ctx, a, c.account)
	if err != nil {
		return c.s.fail(err)
	}
	var from *day.Date
	if c.from != "" {
		d, err := day.Parse(c.from)
		if err != nil {
			return c.s.fail(fmt.Errorf("invalid -from: %w", err))
		}
		from = &d
	}
	report, err := a.MaintenanceService.RecomputeDaily(ctx, id, from)
	printReport(c.s, report)
	if err != nil {
		return c.s.fail(err)
	}
	return subcommands.ExitSuccess
}

type recomputeAllCmd struct {
	s   *session
	yes bool
}

func (*recomputeAllCmd) Name() string { return "recompute-all" }
func (*recomputeAllCmd) Synopsis() string {
	return "rebuild every balance row of every account"
}
func (*recomputeAllCmd) Usage() string {
	return `ledgerctl recompute-all [-yes]

  Rebuilds every balance row. Asks for confirmation on a terminal unless
  -yes is given.
`
}

func (c *recomputeAllCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Do not ask for confirmation.")
}

func (c *recomputeAllCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes && c.s.interactive && !confirm(c.s, "Rebuild every balance row?") {
		fmt.Fprintln(c.s.out, "aborted")
		return subcommands.ExitSuccess
	}
	a, err := c.s.app()
	if err != nil {
		return c.s.fail(err)
	}
	report, err := a.MaintenanceService.RecomputeAll(ctx)
	printReport(c.s, report)
	if err != nil {
		return c.s.fail(err)
	}
	return subcommands.ExitSuccess
}

type verifyCmd struct {
	s       *session
	account string
}

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "check stored balances against the movements" }
func (*verifyCmd) Usage() string {
	return `ledgerctl verify [-account <key|id>]

  Compares every stored balance row with what the movements imply and
  lists the rows that differ. Exits with status 1 on drift.
`
}

func (c *verifyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account key or ID. Every account when empty.")
}

func (c *verifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.s.app()
	if err != nil {
		return c.s.fail(err)
	}
	id, err := resolveAccount(ctx, a, c.account)
	if err != nil {
		return c.s.fail(err)
	}
	report, err := a.MaintenanceService.Verify(ctx, id)
	printReport(c.s, report)
	if errors.Is(err, domain.ErrDriftDetected) {
		return subcommands.ExitFailure
	}
	if err != nil {
		return c.s.fail(err)
	}
	fmt.Fprintln(c.s.out, color.GreenString("consistent"))
	return subcommands.ExitSuccess
}

type migrateCmd struct {
	s *session
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply the database schema" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate

  Applies the versioned migrations on PostgreSQL. SQLite databases are
  migrated when opened.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.s.config()
	if err != nil {
		return c.s.fail(err)
	}
	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		return c.s.fail(err)
	}
	if db.Dialector.Name() != "postgres" {
		fmt.Fprintln(c.s.out, "schema up to date")
		return subcommands.ExitSuccess
	}
	if err := infra.MigrateUp(db); err != nil {
		return c.s.fail(err)
	}
	version, dirty, err := infra.MigrationVersion(db)
	if err != nil {
		return c.s.fail(err)
	}
	fmt.Fprintf(c.s.out, "schema at version %d", version)
	if dirty {
		fmt.Fprint(c.s.out, color.YellowString(" (dirty)"))
	}
	fmt.Fprintln(c.s.out)
	return subcommands.ExitSuccess
}

// resolveAccount accepts an account ID or key. Empty means every account.
func resolveAccount(ctx context.Context, a *pkgapp.App, ref string) (*uuid.UUID, error) {
	if ref == "" {
		return nil, nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		if _, err := a.AccountService.Get(ctx, id); err != nil {
			return nil, err
		}
		return &id, nil
	}
	acc, err := a.AccountService.GetByKey(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", ref, err)
	}
	return &acc.ID, nil
}

func confirm(s *session, question string) bool {
	fmt.Fprintf(s.out, "%s [y/N] ", question)
	line, err := bufio.NewReader(s.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printReport(s *session, report *maintenance.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(s.out, "accounts processed: %d\n", report.Accounts)
	if report.Last != nil {
		fmt.Fprintf(s.out, "last completed: %s\n", report.Last)
	}
	for _, d := range report.Drift {
		fmt.Fprintln(s.out, color.YellowString("drift:"), d.String())
	}
}
