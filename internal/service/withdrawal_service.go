package service

import (
	"context"
	"fmt"
	"time"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
	"coachpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WithdrawalServiceImpl implements ports.WithdrawalService. Money only moves
// on approval: the payout journal is staged and posted in the same
// transaction as the conditional status flip, so a double approval loses the
// race and posts nothing.
type WithdrawalServiceImpl struct {
	withdrawalRepo   ports.WithdrawalRequestRepository
	walletRepo       ports.WalletRepository
	balanceRepo      ports.WalletBalanceRepository
	poster           *LedgerPoster
	transactor       ports.DBTransactor
	clearingWalletID uuid.UUID
	log              zerolog.Logger
}

// NewWithdrawalService creates a WithdrawalServiceImpl.
func NewWithdrawalService(
	withdrawalRepo ports.WithdrawalRequestRepository,
	walletRepo ports.WalletRepository,
	balanceRepo ports.WalletBalanceRepository,
	poster *LedgerPoster,
	transactor ports.DBTransactor,
	clearingWalletID uuid.UUID,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		withdrawalRepo:   withdrawalRepo,
		walletRepo:       walletRepo,
		balanceRepo:      balanceRepo,
		poster:           poster,
		transactor:       transactor,
		clearingWalletID: clearingWalletID,
		log:              log,
	}
}

// Request records a PENDING payout request. The available balance is checked
// here for early feedback and re-checked at approval, which is the only
// point money actually moves.
func (s *WithdrawalServiceImpl) Request(ctx context.Context, walletID uuid.UUID, amountVnd int64, bankAccount string) (*domain.WithdrawalRequest, error) {
	if amountVnd <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if bankAccount == "" {
		return nil, apperror.Validation("bank account is required")
	}

	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	if err := s.checkAvailable(ctx, walletID, amountVnd); err != nil {
		return nil, err
	}

	w := &domain.WithdrawalRequest{
		ID:          uuid.New(),
		WalletID:    walletID,
		AmountVnd:   amountVnd,
		Status:      domain.WithdrawalStatusPending,
		BankAccount: bankAccount,
		CreatedAt:   time.Now().UTC(),
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.withdrawalRepo.Create(ctx, tx, w); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create withdrawal: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit withdrawal: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", w.ID.String()).
		Str("wallet_id", walletID.String()).
		Int64("amount_vnd", amountVnd).
		Msg("withdrawal requested")
	return w, nil
}

// Approve flips the request to APPROVED and posts the payout journal: debit
// the wallet's available funds, credit the clearing wallet that feeds the
// bank transfer.
func (s *WithdrawalServiceImpl) Approve(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	w, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load withdrawal: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrWithdrawalNotFound()
	}
	if w.Status != domain.WithdrawalStatusPending {
		return nil, apperror.ErrWithdrawalProcessed()
	}

	if err := s.checkAvailable(ctx, w.WalletID, w.AmountVnd); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	journal := &domain.WalletJournal{
		ID:        uuid.New(),
		Type:      domain.JournalTypePayout,
		CreatedAt: now,
	}
	entries := []domain.WalletLedgerEntry{
		{
			ID:          uuid.New(),
			JournalID:   journal.ID,
			WalletID:    w.WalletID,
			AmountVnd:   w.AmountVnd,
			Direction:   domain.EntryDebit,
			AccountType: domain.AccountAvailable,
			Description: "Payout to " + w.BankAccount,
			CreatedAt:   now,
		},
		{
			ID:          uuid.New(),
			JournalID:   journal.ID,
			WalletID:    s.clearingWalletID,
			AmountVnd:   w.AmountVnd,
			Direction:   domain.EntryCredit,
			AccountType: domain.AccountAvailable,
			Description: "Payout to " + w.BankAccount,
			CreatedAt:   now,
		},
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	flipped, err := s.withdrawalRepo.UpdateStatus(ctx, tx, id, domain.WithdrawalStatusApproved, &now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("approve withdrawal: %w", err))
	}
	if !flipped {
		return nil, apperror.ErrWithdrawalProcessed()
	}

	if err := s.poster.StageJournal(ctx, tx, journal, entries); err != nil {
		return nil, err
	}
	if _, err := s.poster.PostOrCancel(ctx, tx, journal.ID, domain.JournalStatusPosted, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("post payout journal: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit approval: %w", err))
	}

	w.Status = domain.WithdrawalStatusApproved
	w.ProcessedAt = &now

	s.log.Info().
		Str("withdrawal_id", w.ID.String()).
		Str("journal_id", journal.ID.String()).
		Int64("amount_vnd", w.AmountVnd).
		Msg("withdrawal approved")
	return w, nil
}

// Reject flips the request to REJECTED; the ledger is never touched.
func (s *WithdrawalServiceImpl) Reject(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	w, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load withdrawal: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrWithdrawalNotFound()
	}

	now := time.Now().UTC()

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	flipped, err := s.withdrawalRepo.UpdateStatus(ctx, tx, id, domain.WithdrawalStatusRejected, &now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reject withdrawal: %w", err))
	}
	if !flipped {
		return nil, apperror.ErrWithdrawalProcessed()
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit rejection: %w", err))
	}

	w.Status = domain.WithdrawalStatusRejected
	w.ProcessedAt = &now

	s.log.Info().Str("withdrawal_id", w.ID.String()).Msg("withdrawal rejected")
	return w, nil
}

func (s *WithdrawalServiceImpl) checkAvailable(ctx context.Context, walletID uuid.UUID, amountVnd int64) error {
	balance, err := s.balanceRepo.Get(ctx, walletID, domain.AccountAvailable)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load balance: %w", err))
	}
	if balance == nil || balance.BalanceVnd < amountVnd {
		return apperror.ErrInsufficientFunds()
	}
	return nil
}
