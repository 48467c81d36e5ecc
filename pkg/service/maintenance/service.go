// Package maintenance provides the operator-only batch operations over the
// derived balance tables: rebuilding them from the ledger and checking that
// the incrementally maintained rows still match.
//
// Runs are chunked by account, each chunk in its own transaction, and are
// expected to run without concurrent ledger writes. A failed run reports
// the accounts it completed so the operator can resume.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/repository"
	balancesvc "github.com/amirasaad/ledger/pkg/service/balance"
	"github.com/google/uuid"
)

// Report summarizes a run.
type Report struct {
	// Accounts is how many accounts were processed.
	Accounts int
	// Drift lists every row that differed from the ledger.
	Drift []balance.Drift
	// Last is the last account completed, nil when none was.
	Last *uuid.UUID
}

// Service runs batch maintenance.
type Service struct {
	uow    repository.UnitOfWork
	engine *balancesvc.Engine
	chunk  int
	logger *slog.Logger
}

// New creates a maintenance service that handles chunk accounts per
// transaction.
func New(
	uow repository.UnitOfWork,
	engine *balancesvc.Engine,
	chunk int,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if chunk < 1 {
		chunk = 1
	}
	return &Service{
		uow:    uow,
		engine: engine,
		chunk:  chunk,
		logger: logger.With("service", "Maintenance"),
	}
}

// RecomputeDaily rebuilds the balance rows of one account, or of every
// account when accountID is nil, from day from onwards (from the start when
// nil). Rows before from are trusted, which makes from a restart point.
func (s *Service) RecomputeDaily(ctx context.Context, accountID *uuid.UUID, from *day.Date) (*Report, error) {
	return s.run(ctx, accountID, from, false)
}

// RecomputeAll rebuilds every balance row of every account. On a
// consistent ledger it changes nothing.
func (s *Service) RecomputeAll(ctx context.Context) (*Report, error) {
	return s.run(ctx, nil, nil, false)
}

// Verify compares the stored rows of one or every account with the ledger
// without changing them. It fails with domain.ErrDriftDetected when any row
// differs; the report lists them.
func (s *Service) Verify(ctx context.Context, accountID *uuid.UUID) (*Report, error) {
	report, err := s.run(ctx, accountID, nil, true)
	if err != nil {
		return report, err
	}
	if len(report.Drift) > 0 {
		return report, fmt.Errorf("%w: %d rows", domain.ErrDriftDetected, len(report.Drift))
	}
	return report, nil
}

func (s *Service) run(ctx context.Context, accountID *uuid.UUID, from *day.Date, dryRun bool) (*Report, error) {
	ids, err := s.targets(ctx, accountID)
	if err != nil {
		return nil, err
	}
	report := &Report{}
	logger := s.logger.With("accounts", len(ids), "dry_run", dryRun)
	if from != nil {
		logger = logger.With("from", from.String())
	}
	logger.Info("maintenance run started")

	for start := 0; start < len(ids); start += s.chunk {
		end := min(start+s.chunk, len(ids))
		batch := ids[start:end]
		var drift []balance.Drift
		err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
			drift = drift[:0]
			for _, id := range batch {
				d, err := s.engine.Rebuild(ctx, uow, id, from, dryRun)
				if err != nil {
					return fmt.Errorf("account %s: %w", id, err)
				}
				drift = append(drift, d...)
			}
			return nil
		})
		if err != nil {
			logger.Error("maintenance run stopped", "completed", report.Accounts, "error", err)
			return report, err
		}
		report.Accounts += len(batch)
		report.Drift = append(report.Drift, drift...)
		last := batch[len(batch)-1]
		report.Last = &last
	}
	logger.Info("maintenance run finished", "drift", len(report.Drift))
	return report, nil
}

// targets returns the accounts to process, deepest first so children are
// rebuilt before the branches summing them.
func (s *Service) targets(ctx context.Context, accountID *uuid.UUID) ([]uuid.UUID, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	if accountID != nil {
		if _, err := repo.Get(ctx, *accountID); err != nil {
			return nil, err
		}
		return []uuid.UUID{*accountID}, nil
	}
	all, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	tree := account.NewTree(all)
	depth := func(id uuid.UUID) int {
		anc, err := tree.Ancestors(id)
		if err != nil {
			return 0
		}
		return len(anc)
	}
	byDepth := map[int][]uuid.UUID{}
	deepest := 0
	for _, a := range tree.All() {
		d := depth(a.ID)
		byDepth[d] = append(byDepth[d], a.ID)
		deepest = max(deepest, d)
	}
	ids := make([]uuid.UUID, 0, len(all))
	for d := deepest; d >= 0; d-- {
		ids = append(ids, byDepth[d]...)
	}
	return ids, nil
}
