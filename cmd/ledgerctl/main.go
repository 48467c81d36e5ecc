// Command ledgerctl runs ledger maintenance from the shell: balance row
// rebuilds, consistency checks, balance lookups and schema migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/amirasaad/ledger/infra/initializer"
	pkgapp "github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/fatih/color"
	"github.com/google/subcommands"
	"golang.org/x/term"
)

// session is what every command runs against. Tests swap open for a
// fixture.
type session struct {
	config      func() (*config.App, error)
	open        func(*config.App) (*pkgapp.App, error)
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
}

func newSession() *session {
	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	color.NoColor = color.NoColor || !interactive
	return &session{
		config:      func() (*config.App, error) { return config.Load(".env") },
		open:        initializer.InitializeApp,
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
		interactive: interactive,
	}
}

// app loads the configuration and wires the services.
func (s *session) app() (*pkgapp.App, error) {
	cfg, err := s.config()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	a, err := s.open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}
	return a, nil
}

func (s *session) fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(s.errOut, color.RedString("error:"), err)
	return subcommands.ExitFailure
}

func register(commander *subcommands.Commander, s *session) {
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&recomputeCmd{s: s}, "maintenance")
	commander.Register(&recomputeAllCmd{s: s}, "maintenance")
	commander.Register(&verifyCmd{s: s}, "maintenance")
	commander.Register(&migrateCmd{s: s}, "maintenance")
	commander.Register(&balanceCmd{s: s}, "queries")
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	register(commander, newSession())

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(commander.Execute(ctx)))
}
