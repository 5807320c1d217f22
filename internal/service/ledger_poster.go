package service

import (
	"context"
	"fmt"
	"time"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
	"coachpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerPoster stages journals and flips their status. Entries are immutable
// and pre-staged balanced, so posting is a pure status flip plus the derived
// balance projection; cancelling never deletes entries, preserving the audit
// trail.
type LedgerPoster struct {
	journalRepo ports.WalletJournalRepository
	entryRepo   ports.WalletLedgerEntryRepository
	balanceRepo ports.WalletBalanceRepository
	log         zerolog.Logger
}

// NewLedgerPoster creates a LedgerPoster.
func NewLedgerPoster(
	journalRepo ports.WalletJournalRepository,
	entryRepo ports.WalletLedgerEntryRepository,
	balanceRepo ports.WalletBalanceRepository,
	log zerolog.Logger,
) *LedgerPoster {
	return &LedgerPoster{
		journalRepo: journalRepo,
		entryRepo:   entryRepo,
		balanceRepo: balanceRepo,
		log:         log,
	}
}

// StageJournal writes a PENDING journal together with its entries. The entry
// set must balance; an unbalanced set is refused before anything is written,
// which is what guarantees every later posting balances by construction.
func (p *LedgerPoster) StageJournal(ctx context.Context, tx pgx.Tx, journal *domain.WalletJournal, entries []domain.WalletLedgerEntry) error {
	if !domain.EntriesBalanced(entries) {
		return apperror.ErrUnbalancedJournal()
	}

	journal.Status = domain.JournalStatusPending
	if err := p.journalRepo.Create(ctx, tx, journal); err != nil {
		return apperror.InternalError(fmt.Errorf("create journal: %w", err))
	}
	if err := p.entryRepo.CreateBatch(ctx, tx, entries); err != nil {
		return apperror.InternalError(fmt.Errorf("create ledger entries: %w", err))
	}
	return nil
}

// PostOrCancel flips one journal from PENDING to the outcome status. Posting
// also folds the entry amounts into the WalletBalance projection (credits
// add, debits subtract). Returns false when the journal was already terminal,
// which callers treat as an idempotent no-op.
func (p *LedgerPoster) PostOrCancel(ctx context.Context, tx pgx.Tx, journalID uuid.UUID, outcome domain.JournalStatus, now time.Time) (bool, error) {
	if outcome != domain.JournalStatusPosted && outcome != domain.JournalStatusCancelled {
		return false, fmt.Errorf("invalid journal outcome: %s", outcome)
	}

	var postedAt *time.Time
	if outcome == domain.JournalStatusPosted {
		postedAt = &now
	}

	flipped, err := p.journalRepo.UpdateStatus(ctx, tx, journalID, outcome, postedAt)
	if err != nil {
		return false, fmt.Errorf("flip journal status: %w", err)
	}
	if !flipped {
		p.log.Debug().Str("journal_id", journalID.String()).Msg("journal already terminal, skipping")
		return false, nil
	}

	if outcome == domain.JournalStatusPosted {
		entries, err := p.entryRepo.ListByJournalID(ctx, journalID)
		if err != nil {
			return false, fmt.Errorf("load journal entries: %w", err)
		}
		for _, e := range entries {
			delta := e.AmountVnd
			if e.Direction == domain.EntryDebit {
				delta = -delta
			}
			if err := p.balanceRepo.AdjustBalance(ctx, tx, e.WalletID, e.AccountType, delta); err != nil {
				return false, fmt.Errorf("adjust balance: %w", err)
			}
		}
	}

	return true, nil
}
