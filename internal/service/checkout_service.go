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

// CheckoutServiceImpl implements ports.CheckoutService. Initiation creates the
// Payment and its staged journal/entries in one transaction, then asks the
// gateway for checkout artifacts. A payment whose gateway call fails stays
// INITIATED and is reclaimed by the expiry sweep.
type CheckoutServiceImpl struct {
	adapters         map[domain.PaymentGateway]ports.GatewayAdapter
	paymentRepo      ports.PaymentRepository
	walletRepo       ports.WalletRepository
	poster           *LedgerPoster
	transactor       ports.DBTransactor
	clearingWalletID uuid.UUID
	log              zerolog.Logger
}

// NewCheckoutService creates a CheckoutServiceImpl.
func NewCheckoutService(
	adapters map[domain.PaymentGateway]ports.GatewayAdapter,
	paymentRepo ports.PaymentRepository,
	walletRepo ports.WalletRepository,
	poster *LedgerPoster,
	transactor ports.DBTransactor,
	clearingWalletID uuid.UUID,
	log zerolog.Logger,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		adapters:         adapters,
		paymentRepo:      paymentRepo,
		walletRepo:       walletRepo,
		poster:           poster,
		transactor:       transactor,
		clearingWalletID: clearingWalletID,
		log:              log,
	}
}

// journalTypeForFlow maps a checkout flow to the journal type it stages.
func journalTypeForFlow(flow domain.PaymentFlow) domain.JournalType {
	switch flow {
	case domain.FlowBooking:
		return domain.JournalTypeBookingHold
	case domain.FlowWalletTopup:
		return domain.JournalTypeWalletTopup
	default:
		return domain.JournalTypePackagePurchase
	}
}

// Initiate creates a payment attempt. Returns the gateway artifacts and the
// staged journal id.
func (s *CheckoutServiceImpl) Initiate(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutArtifacts, uuid.UUID, error) {
	if req.AmountVnd <= 0 {
		return nil, uuid.Nil, apperror.ErrInvalidAmount()
	}

	adapter, ok := s.adapters[req.Gateway]
	if !ok {
		return nil, uuid.Nil, apperror.ErrUnknownGateway(string(req.Gateway))
	}
	if !adapter.ConfigValid(req.Flow) {
		return nil, uuid.Nil, apperror.ErrGatewayNotConfigured(string(req.Gateway))
	}

	wallet, err := s.walletRepo.GetByID(ctx, req.WalletID)
	if err != nil {
		return nil, uuid.Nil, apperror.InternalError(fmt.Errorf("load wallet: %w", err))
	}
	if wallet == nil {
		return nil, uuid.Nil, apperror.ErrWalletNotFound()
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:        uuid.New(),
		BookingID: req.BookingID,
		WalletID:  req.WalletID,
		AmountVnd: req.AmountVnd,
		Gateway:   req.Gateway,
		Flow:      req.Flow,
		Status:    domain.PaymentStatusInitiated,
		OrderCode: fmt.Sprintf("%d", now.UnixMilli()),
		ClientIP:  req.ClientIP,
		CreatedAt: now,
	}

	journal := &domain.WalletJournal{
		ID:        uuid.New(),
		BookingID: req.BookingID,
		PaymentID: &payment.ID,
		Type:      journalTypeForFlow(req.Flow),
		CreatedAt: now,
	}
	description := adapter.LedgerDescription()
	entries := []domain.WalletLedgerEntry{
		{
			ID:          uuid.New(),
			JournalID:   journal.ID,
			WalletID:    s.clearingWalletID,
			AmountVnd:   req.AmountVnd,
			Direction:   domain.EntryDebit,
			AccountType: domain.AccountAvailable,
			Description: description,
			CreatedAt:   now,
		},
		{
			ID:          uuid.New(),
			JournalID:   journal.ID,
			WalletID:    req.WalletID,
			AmountVnd:   req.AmountVnd,
			Direction:   domain.EntryCredit,
			AccountType: domain.AccountEscrow,
			Description: description,
			CreatedAt:   now,
		},
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, uuid.Nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
		return nil, uuid.Nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}
	if err := s.poster.StageJournal(ctx, tx, journal, entries); err != nil {
		return nil, uuid.Nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, uuid.Nil, apperror.InternalError(fmt.Errorf("commit initiation: %w", err))
	}

	artifacts, err := adapter.BuildCheckout(ctx, payment)
	if err != nil {
		s.log.Error().Err(err).
			Str("payment_id", payment.ID.String()).
			Str("gateway", string(req.Gateway)).
			Msg("gateway checkout failed, payment left for expiry sweep")
		return nil, uuid.Nil, apperror.ErrCheckoutFailed(err)
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("journal_id", journal.ID.String()).
		Str("gateway", string(req.Gateway)).
		Int64("amount_vnd", req.AmountVnd).
		Msg("checkout initiated")

	return artifacts, journal.ID, nil
}
