package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
	"coachpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReconcileService runs the shared return-reconciliation algorithm over the
// per-gateway adapter set. Every rejection leaves the ledger untouched; the
// only mutation path is the single atomic commit at the end. Infrastructure
// failures return an error and rely on the gateway's retry policy.
type ReconcileService struct {
	adapters    map[domain.PaymentGateway]ports.GatewayAdapter
	paymentRepo ports.PaymentRepository
	journalRepo ports.WalletJournalRepository
	poster      *LedgerPoster
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewReconcileService creates a ReconcileService.
func NewReconcileService(
	adapters map[domain.PaymentGateway]ports.GatewayAdapter,
	paymentRepo ports.PaymentRepository,
	journalRepo ports.WalletJournalRepository,
	poster *LedgerPoster,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *ReconcileService {
	return &ReconcileService{
		adapters:    adapters,
		paymentRepo: paymentRepo,
		journalRepo: journalRepo,
		poster:      poster,
		transactor:  transactor,
		log:         log,
	}
}

func reject(code, message string) domain.ReconcileResult {
	return domain.ReconcileResult{Outcome: domain.OutcomeRejected, Code: code, Message: message}
}

// HandleCallback processes one gateway callback end to end.
func (s *ReconcileService) HandleCallback(ctx context.Context, gw domain.PaymentGateway, params map[string]string) (domain.ReconcileResult, error) {
	adapter, ok := s.adapters[gw]
	if !ok {
		return reject(domain.ReconcileCodeConfigurationMissing, "unknown gateway"), nil
	}

	// Fail closed: incomplete credentials mean we cannot authenticate
	// anything, so nothing may be mutated.
	if !adapter.ConfigValid("") {
		s.log.Error().Str("gateway", string(gw)).Msg("gateway credentials missing, rejecting callback")
		return reject(domain.ReconcileCodeConfigurationMissing, "gateway not configured"), nil
	}

	verified, err := adapter.VerifyCallback(ctx, params)
	if err != nil {
		if errors.Is(err, ports.ErrSignatureInvalid) {
			s.log.Warn().Str("gateway", string(gw)).Msg("callback signature invalid")
			return reject(domain.ReconcileCodeSignatureInvalid, "invalid signature"), nil
		}
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("verify callback: %w", err))
	}

	ref, err := adapter.ResolvePaymentRef(verified)
	if err != nil {
		return reject(domain.ReconcileCodePaymentNotFound, "payment reference missing"), nil
	}

	amount, err := adapter.ResolveAmount(verified)
	if err != nil {
		if errors.Is(err, ports.ErrAmountScale) {
			return reject(domain.ReconcileCodeAmountMismatch, "invalid amount"), nil
		}
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("resolve amount: %w", err))
	}

	payment, err := s.loadPayment(ctx, ref)
	if err != nil {
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("load payment: %w", err))
	}
	if payment == nil {
		return reject(domain.ReconcileCodePaymentNotFound, "payment not found"), nil
	}

	// Idempotent success path: a captured payment acknowledges repeats
	// without touching anything. A failed payment (late callback after the
	// expiry sweep) is likewise never reopened.
	if payment.Status == domain.PaymentStatusCaptured {
		return domain.ReconcileResult{
			Outcome: domain.OutcomeAlreadyConfirmed,
			Code:    domain.ReconcileCodeAlreadyConfirmed,
			Message: "payment already confirmed",
		}, nil
	}
	if payment.Status == domain.PaymentStatusFailed {
		return reject(domain.ReconcileCodePaymentFailed, "payment already failed"), nil
	}

	// Tamper / partial-payment guard.
	if amount != payment.AmountVnd {
		s.log.Warn().
			Str("payment_id", payment.ID.String()).
			Int64("expected", payment.AmountVnd).
			Int64("reported", amount).
			Msg("callback amount mismatch")
		return reject(domain.ReconcileCodeAmountMismatch, "amount mismatch"), nil
	}

	code, status := adapter.ResolveResult(verified)
	if adapter.IsSuccess(code, status) {
		return s.confirm(ctx, adapter, payment, verified)
	}
	return s.fail(ctx, payment, code)
}

// loadPayment resolves the adapter's payment reference to a row.
func (s *ReconcileService) loadPayment(ctx context.Context, ref ports.PaymentRef) (*domain.Payment, error) {
	if ref.PaymentID != uuid.Nil {
		return s.paymentRepo.GetByID(ctx, ref.PaymentID)
	}
	return s.paymentRepo.GetByOrderCode(ctx, ref.OrderCode)
}

// confirm captures the payment and posts its journals in one transaction.
func (s *ReconcileService) confirm(ctx context.Context, adapter ports.GatewayAdapter, payment *domain.Payment, params map[string]string) (domain.ReconcileResult, error) {
	now := time.Now().UTC()
	externalTxnID := adapter.ResolveExternalTxnID(params)

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Conditional update: a concurrent duplicate that got here first wins
	// and this one degrades to the idempotent acknowledgment.
	captured, err := s.paymentRepo.MarkCaptured(ctx, tx, payment.ID, externalTxnID, now)
	if err != nil {
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("mark captured: %w", err))
	}
	if !captured {
		return domain.ReconcileResult{
			Outcome: domain.OutcomeAlreadyConfirmed,
			Code:    domain.ReconcileCodeAlreadyConfirmed,
			Message: "payment already confirmed",
		}, nil
	}

	journals, err := s.journalRepo.ListByPaymentID(ctx, payment.ID)
	if err != nil {
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("list journals: %w", err))
	}
	for _, j := range journals {
		if _, err := s.poster.PostOrCancel(ctx, tx, j.ID, domain.JournalStatusPosted, now); err != nil {
			return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("post journal %s: %w", j.ID, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("commit reconcile: %w", err))
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("gateway", string(adapter.Gateway())).
		Str("external_txn_id", externalTxnID).
		Int64("amount_vnd", payment.AmountVnd).
		Msg("payment captured")

	return domain.ReconcileResult{
		Outcome: domain.OutcomeConfirmed,
		Code:    domain.ReconcileCodeConfirmed,
		Message: "confirm success",
	}, nil
}

// fail records a validly-signed failure: the payment flips to FAILED and its
// staged journals are cancelled, releasing any hold.
func (s *ReconcileService) fail(ctx context.Context, payment *domain.Payment, gatewayCode string) (domain.ReconcileResult, error) {
	now := time.Now().UTC()

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	failed, err := s.paymentRepo.MarkFailed(ctx, tx, payment.ID)
	if err != nil {
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("mark failed: %w", err))
	}
	if !failed {
		return domain.ReconcileResult{
			Outcome: domain.OutcomeAlreadyConfirmed,
			Code:    domain.ReconcileCodeAlreadyConfirmed,
			Message: "payment already confirmed",
		}, nil
	}

	journals, err := s.journalRepo.ListByPaymentID(ctx, payment.ID)
	if err != nil {
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("list journals: %w", err))
	}
	for _, j := range journals {
		if _, err := s.poster.PostOrCancel(ctx, tx, j.ID, domain.JournalStatusCancelled, now); err != nil {
			return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("cancel journal %s: %w", j.ID, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ReconcileResult{}, apperror.InternalError(fmt.Errorf("commit reconcile: %w", err))
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("gateway_code", gatewayCode).
		Msg("payment failure recorded")

	return domain.ReconcileResult{
		Outcome: domain.OutcomeFailed,
		Code:    domain.ReconcileCodeConfirmed,
		Message: "payment failure recorded",
	}, nil
}
